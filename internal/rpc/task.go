package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/moderatehq/voiceworker/internal/session"
)

// Task is the study task currently in progress.
type Task struct {
	Number       int
	Name         string
	Description  string
	Instructions string
}

// TaskHandler tracks task progress and mirrors section boundaries into
// the chat context.
type TaskHandler struct {
	sess   *session.Session
	logger *slog.Logger

	mu      sync.Mutex
	current *Task
}

func NewTaskHandler(sess *session.Session, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{sess: sess, logger: logger.With("handler", "task")}
}

// Register attaches the task methods to reg.
func (h *TaskHandler) Register(reg Registrar) {
	reg.RegisterMethod(MethodStartTask, h.HandleTaskStart)
	reg.RegisterMethod(MethodEndTask, h.HandleTaskEnd)
	reg.RegisterMethod(MethodSkipTask, h.HandleTaskSkip)
	h.logger.Info("registered task RPC methods")
}

// CurrentTask returns the task in progress, or nil between tasks.
func (h *TaskHandler) CurrentTask() *Task {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *TaskHandler) HandleTaskStart(ctx context.Context, payload string) string {
	var p TaskStartPayload
	if err := parsePayload(payload, &p); err != nil {
		h.logger.Error("task start payload", "error", err)
		return failureResponse(err.Error(), nil)
	}

	var missing []string
	if p.TaskNumber == 0 {
		missing = append(missing, "taskNumber")
	}
	if p.TaskName == "" {
		missing = append(missing, "taskName")
	}
	if len(missing) > 0 {
		h.logger.Error("task start missing fields", "fields", missing)
		return missingFieldsResponse(missing)
	}

	h.mu.Lock()
	h.current = &Task{
		Number:       p.TaskNumber,
		Name:         p.TaskName,
		Description:  p.TaskDescription,
		Instructions: p.TaskInstructions,
	}
	h.mu.Unlock()

	h.commitMarker(p.TaskNumber, "starts", p.Timestamp)
	return successResponse()
}

func (h *TaskHandler) HandleTaskEnd(ctx context.Context, payload string) string {
	var p TaskEndPayload
	if err := parsePayload(payload, &p); err != nil {
		h.logger.Error("task end payload", "error", err)
		return failureResponse(err.Error(), nil)
	}
	if p.TaskNumber == 0 {
		return failureResponse("Missing required field: taskNumber", nil)
	}

	h.commitMarker(p.TaskNumber, "completed", p.Timestamp)

	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
	return successResponse()
}

func (h *TaskHandler) HandleTaskSkip(ctx context.Context, payload string) string {
	var p TaskSkipPayload
	if err := parsePayload(payload, &p); err != nil {
		h.logger.Error("task skip payload", "error", err)
		return failureResponse(err.Error(), nil)
	}
	if p.TaskNumber == 0 {
		return failureResponse("Missing required field: taskNumber", nil)
	}

	h.commitMarker(p.TaskNumber, "skipped", p.Timestamp)

	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
	return successResponse()
}

// commitMarker writes a section boundary marker to the chat context.
// Section numbering in markers is taskNumber+1.
func (h *TaskHandler) commitMarker(taskNumber int, verb string, timestamp float64) {
	marker := fmt.Sprintf("~~ Section %d %s ~~", taskNumber+1, verb)
	h.sess.CommitUserMessage(marker, timestamp)
	h.logger.Info("added task event to chat context", "content", marker)
}
