// Package rpc implements the participant-facing RPC handlers for
// interaction and task events. Handlers are transport-agnostic: they
// attach to any Registrar and always answer with a JSON Response
// envelope, never a panic or an error across the boundary.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Method names as invoked by clients.
const (
	MethodComponentClick  = "componentClick"
	MethodScreenChange    = "screenChange"
	MethodTranscribedText = "transcribedText"
	MethodStartTask       = "startTask"
	MethodEndTask         = "endTask"
	MethodSkipTask        = "skipTask"
)

// HandlerFunc processes one invocation payload and returns the JSON
// response body.
type HandlerFunc func(ctx context.Context, payload string) string

// Registrar attaches method handlers to a dispatch transport.
type Registrar interface {
	RegisterMethod(method string, handler HandlerFunc)
}

// Response is the envelope every handler answers with.
type Response struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ComponentClickPayload describes a click on a prototype node.
type ComponentClickPayload struct {
	TenantID   string  `json:"tenantId"`
	FileKey    string  `json:"fileKey"`
	FrameID    string  `json:"frameId"`
	NodeID     string  `json:"nodeId"`
	NewFrameID string  `json:"newFrameId"`
	Timestamp  float64 `json:"timestamp"`
	Animation  bool    `json:"animation"`
	TaskNumber int     `json:"taskNumber"`
}

// ScreenChangePayload describes a navigation to a new frame.
type ScreenChangePayload struct {
	TenantID   string  `json:"tenantId"`
	FileKey    string  `json:"fileKey"`
	FrameID    string  `json:"frameId"`
	Timestamp  float64 `json:"timestamp"`
	TaskNumber int     `json:"taskNumber"`
}

// TranscribedTextPayload carries externally transcribed user speech.
type TranscribedTextPayload struct {
	TranscribedText string  `json:"transcribedText"`
	Timestamp       float64 `json:"timestamp"`
}

// TaskStartPayload announces the start of a study task.
type TaskStartPayload struct {
	TaskNumber       int     `json:"taskNumber"`
	TaskName         string  `json:"taskName"`
	TaskDescription  string  `json:"taskDescription"`
	TaskInstructions string  `json:"taskInstructions"`
	Timestamp        float64 `json:"timestamp"`
}

// TaskEndPayload announces that the current task finished.
type TaskEndPayload struct {
	TaskNumber int     `json:"taskNumber"`
	Timestamp  float64 `json:"timestamp"`
}

// TaskSkipPayload announces that the current task was skipped.
type TaskSkipPayload struct {
	TaskNumber int     `json:"taskNumber"`
	Timestamp  float64 `json:"timestamp"`
}

func respond(r Response) string {
	b, err := json.Marshal(r)
	if err != nil {
		// Response only holds marshalable types; this is unreachable
		// unless Data carries something exotic.
		return `{"success":false,"message":"internal encoding error"}`
	}
	return string(b)
}

func successResponse() string {
	return respond(Response{Success: true})
}

func failureResponse(message string, data map[string]any) string {
	return respond(Response{Success: false, Message: message, Data: data})
}

func missingFieldsResponse(fields []string) string {
	return failureResponse("Missing required fields: "+strings.Join(fields, ", "), nil)
}

func parsePayload(payload string, v any) error {
	if strings.TrimSpace(payload) == "" {
		return fmt.Errorf("empty payload received")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}
