package llm

// ChatChunk is one normalized event emitted by a ChatStream: a partial
// content update, one or more completed tool calls, a usage report, or any
// combination a single upstream chunk produced.
type ChatChunk struct {
	RequestID string           `json:"request_id"`
	Choices   []Choice         `json:"choices,omitempty"`
	Usage     *CompletionUsage `json:"usage,omitempty"`
}

// Choice carries the delta for one completion choice.
type Choice struct {
	Delta ChoiceDelta `json:"delta"`
	Index int         `json:"index"`
}

// ChoiceDelta is the incremental payload of a choice: either partial text
// content or completed tool calls, with the assistant role.
type ChoiceDelta struct {
	Role      ChatRole           `json:"role"`
	Content   string             `json:"content,omitempty"`
	ToolCalls []FunctionCallInfo `json:"tool_calls,omitempty"`
}

// CompletionUsage reports token accounting for a completed request.
type CompletionUsage struct {
	CompletionTokens int `json:"completion_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
