// Package llm defines the provider-neutral chat-completion types and the
// interfaces LLM plugins implement.
package llm

import (
	"context"

	"github.com/moderatehq/voiceworker/pkg/agent"
)

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleTool      ChatRole = "tool"
)

// ChatMessage is a single entry in a chat context.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
	Name    string   `json:"name,omitempty"`
}

// ChatContext is the ordered conversation history handed to an LLM plugin.
type ChatContext struct {
	Messages []ChatMessage
}

// NewChatContext creates an empty chat context.
func NewChatContext() *ChatContext {
	return &ChatContext{}
}

// Append adds a message to the end of the context.
func (c *ChatContext) Append(msg ChatMessage) {
	c.Messages = append(c.Messages, msg)
}

// UpdateMessage replaces the message at index. Out-of-range indices are a
// no-op so handlers can update well-known slots without guarding length.
func (c *ChatContext) UpdateMessage(index int, msg ChatMessage) {
	if index < 0 || index >= len(c.Messages) {
		return
	}
	c.Messages[index] = msg
}

// Copy returns a shallow copy with its own message slice.
func (c *ChatContext) Copy() *ChatContext {
	msgs := make([]ChatMessage, len(c.Messages))
	copy(msgs, c.Messages)
	return &ChatContext{Messages: msgs}
}

// ToolChoice controls which function the model is allowed to call.
// Valid values are "auto", "required", "none", or a specific function name.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// ChatParams are the per-call overrides accepted by LLM.Chat.
type ChatParams struct {
	FunctionContext   *FunctionContext
	Temperature       *float64
	N                 int
	ParallelToolCalls *bool
	ToolChoice        ToolChoice
	ConnectOptions    *agent.ConnectOptions
}

// LLM is the interface chat-completion plugins implement.
type LLM interface {
	// Chat opens a streaming completion for the given context.
	Chat(ctx context.Context, chatCtx *ChatContext, params ChatParams) (ChatStream, error)
}

// ChatStream iterates normalized chat chunks.
// Next returns io.EOF once the stream is complete.
type ChatStream interface {
	Next() (*ChatChunk, error)
	Close() error
}
