package rpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moderatehq/voiceworker/internal/session"
)

// FrameDB is the slice of the database client the interaction handlers
// need. *dbservice.Client satisfies it.
type FrameDB interface {
	GetComponentDescription(ctx context.Context, databaseID, fileKey, frameID, nodeID string) (string, error)
	GetFrameName(ctx context.Context, databaseID, fileKey, frameID string) (string, error)
	GetFrameDescription(ctx context.Context, databaseID, fileKey, frameID string) (string, error)
}

// InteractionHandler answers component click, screen change and
// transcribed text invocations against a session's chat context.
type InteractionHandler struct {
	db     FrameDB
	sess   *session.Session
	logger *slog.Logger
}

func NewInteractionHandler(db FrameDB, sess *session.Session, logger *slog.Logger) *InteractionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InteractionHandler{db: db, sess: sess, logger: logger.With("handler", "interaction")}
}

// Register attaches the interaction methods to reg.
func (h *InteractionHandler) Register(reg Registrar) {
	reg.RegisterMethod(MethodComponentClick, h.HandleComponentClick)
	reg.RegisterMethod(MethodScreenChange, h.HandleScreenChange)
	reg.RegisterMethod(MethodTranscribedText, h.HandleTranscribedText)
	h.logger.Info("registered interaction RPC methods")
}

// HandleComponentClick resolves the clicked node and frame, appends the
// interaction message to the chat context and cascades a screen change
// when the click navigated to a new frame.
func (h *InteractionHandler) HandleComponentClick(ctx context.Context, payload string) string {
	var p ComponentClickPayload
	if err := parsePayload(payload, &p); err != nil {
		h.logger.Error("component click payload", "error", err)
		return failureResponse(err.Error(), nil)
	}

	var missing []string
	if p.TenantID == "" {
		missing = append(missing, "tenantId")
	}
	if p.FileKey == "" {
		missing = append(missing, "fileKey")
	}
	if p.FrameID == "" {
		missing = append(missing, "frameId")
	}
	if len(missing) > 0 {
		h.logger.Error("component click missing fields", "fields", missing)
		return missingFieldsResponse(missing)
	}

	nodeDesc, err := h.db.GetComponentDescription(ctx, p.TenantID, p.FileKey, p.FrameID, p.NodeID)
	if err != nil {
		h.logger.Error("component description lookup", "error", err, "node_id", p.NodeID)
		return failureResponse(err.Error(), nil)
	}
	frameName, err := h.db.GetFrameName(ctx, p.TenantID, p.FileKey, p.FrameID)
	if err != nil {
		h.logger.Error("frame name lookup", "error", err, "frame_id", p.FrameID)
		return failureResponse(err.Error(), nil)
	}

	newFrameName := "Some Frame"
	if p.NewFrameID != "" {
		newFrameName, err = h.db.GetFrameName(ctx, p.TenantID, p.FileKey, p.NewFrameID)
		if err != nil {
			h.logger.Error("new frame name lookup", "error", err, "frame_id", p.NewFrameID)
			return failureResponse(err.Error(), nil)
		}
	}

	msg := interactionMessage(frameName, p.NewFrameID, p.FrameID, nodeDesc, newFrameName, p.Animation)
	if msg != "" {
		h.sess.CommitUserMessage(msg, p.Timestamp)
		h.logger.Info("added interaction to chat context", "content", msg)
	} else {
		h.logger.Warn("interaction message is empty", "frame_id", p.FrameID)
	}

	if p.NewFrameID != "" && p.NewFrameID != p.FrameID {
		h.applyScreenChange(ctx, ScreenChangePayload{
			TenantID:  p.TenantID,
			FileKey:   p.FileKey,
			FrameID:   p.NewFrameID,
			Timestamp: p.Timestamp,
		})
	}

	return successResponse()
}

// HandleScreenChange refreshes the screen description system message.
// Lookup failures are logged but do not fail the invocation.
func (h *InteractionHandler) HandleScreenChange(ctx context.Context, payload string) string {
	var p ScreenChangePayload
	if err := parsePayload(payload, &p); err != nil {
		h.logger.Error("screen change payload", "error", err)
		return failureResponse(err.Error(), nil)
	}
	h.applyScreenChange(ctx, p)
	return successResponse()
}

// HandleTranscribedText appends externally transcribed speech to the
// chat context, wrapped in the interaction brackets.
func (h *InteractionHandler) HandleTranscribedText(ctx context.Context, payload string) string {
	var p TranscribedTextPayload
	if err := parsePayload(payload, &p); err != nil {
		h.logger.Error("transcribed text payload", "error", err)
		return failureResponse(err.Error(), nil)
	}
	if p.TranscribedText == "" || p.Timestamp == 0 {
		return failureResponse("Invalid data", map[string]any{
			"transcribedText": p.TranscribedText,
			"timestamp":       p.Timestamp,
		})
	}

	msg := fmt.Sprintf("[[%s]]", p.TranscribedText)
	h.sess.CommitUserMessage(msg, p.Timestamp)
	h.logger.Info("added transcribed text to chat context", "content", msg)
	return successResponse()
}

func (h *InteractionHandler) applyScreenChange(ctx context.Context, p ScreenChangePayload) {
	frameName, err := h.db.GetFrameName(ctx, p.TenantID, p.FileKey, p.FrameID)
	if err != nil {
		h.logger.Error("screen change frame name", "error", err, "frame_id", p.FrameID)
		return
	}
	frameDesc, err := h.db.GetFrameDescription(ctx, p.TenantID, p.FileKey, p.FrameID)
	if err != nil {
		h.logger.Error("screen change frame description", "error", err, "frame_id", p.FrameID)
		return
	}
	if frameName == "" || frameDesc == "" {
		return
	}

	h.sess.SetScreenDescription(fmt.Sprintf("### Description of %s: %s ###", frameName, frameDesc))
	h.logger.Info("updated screen description", "frame", frameName)
}

// interactionMessage picks the message variant for a click. An unknown
// frame yields no message at all.
func interactionMessage(frameName, newFrameID, frameID, nodeDesc, newFrameName string, animation bool) string {
	if frameName == "" {
		return ""
	}
	if nodeDesc == "" {
		nodeDesc = "somewhere"
	}
	switch {
	case newFrameID == frameID:
		return fmt.Sprintf("[[Clicked on '%s' on '%s' screen]]", nodeDesc, frameName)
	case animation:
		return fmt.Sprintf("[[Animation on '%s' screen moved user to '%s' screen]]", frameName, newFrameName)
	case newFrameID != "":
		return fmt.Sprintf("[[Clicked on '%s' on '%s' screen and moved to '%s' screen]]", nodeDesc, frameName, newFrameName)
	default:
		return fmt.Sprintf("[[Misclicked on '%s' on '%s' screen and didn't open any screen]]", nodeDesc, frameName)
	}
}
