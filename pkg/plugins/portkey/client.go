package portkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/moderatehq/voiceworker/pkg/agent"
	"github.com/moderatehq/voiceworker/pkg/llm"
)

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model               ChatModel     `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Stream              bool          `json:"stream"`
	StreamOptions       *streamOpts   `json:"stream_options,omitempty"`
	Temperature         *float64      `json:"temperature,omitempty"`
	N                   int           `json:"n,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Tools               []chatTool    `json:"tools,omitempty"`
	ToolChoice          string        `json:"tool_choice,omitempty"`
	ParallelToolCalls   *bool         `json:"parallel_tool_calls,omitempty"`
}

type streamOpts struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    llm.ChatRole `json:"role"`
	Content string       `json:"content"`
	Name    string       `json:"name,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// buildRequest assembles the request body from the chat context and
// per-call parameters, falling back to the plugin's defaults.
func (l *LLM) buildRequest(chatCtx *llm.ChatContext, params llm.ChatParams) *chatRequest {
	req := &chatRequest{
		Model:               l.opts.Model,
		Stream:              true,
		StreamOptions:       &streamOpts{IncludeUsage: true},
		Temperature:         l.opts.Temperature,
		MaxCompletionTokens: l.opts.MaxCompletionTokens,
	}
	if params.Temperature != nil {
		req.Temperature = params.Temperature
	}
	if params.N > 1 {
		req.N = params.N
	}
	if params.ParallelToolCalls != nil {
		req.ParallelToolCalls = params.ParallelToolCalls
	}

	if chatCtx != nil {
		req.Messages = make([]chatMessage, 0, len(chatCtx.Messages))
		for _, m := range chatCtx.Messages {
			req.Messages = append(req.Messages, chatMessage{
				Role:    m.Role,
				Content: m.Content,
				Name:    m.Name,
			})
		}
	}

	if fc := params.FunctionContext; fc != nil && fc.Len() > 0 {
		req.Tools = buildTools(fc)
		if params.ToolChoice != "" {
			req.ToolChoice = string(params.ToolChoice)
		}
	}
	return req
}

// buildTools converts registered functions into the wire tool schema.
func buildTools(fc *llm.FunctionContext) []chatTool {
	infos := fc.Functions()
	tools := make([]chatTool, 0, len(infos))
	for _, info := range infos {
		properties := make(map[string]any, len(info.Parameters))
		var required []string
		for name, p := range info.Parameters {
			properties[name] = map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
			if p.Required {
				required = append(required, name)
			}
		}
		parameters := map[string]any{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			parameters["required"] = required
		}
		tools = append(tools, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        info.Name,
				Description: info.Description,
				Parameters:  parameters,
			},
		})
	}
	return tools
}

// doStreamRequest opens the SSE response. Errors are normalized into the
// shared taxonomy before the stream starts; once streaming has begun,
// transport failures surface through the stream itself.
func (l *LLM) doStreamRequest(ctx context.Context, req *chatRequest, connOpts *agent.ConnectOptions) (io.ReadCloser, error) {
	opts := agent.DefaultConnectOptions()
	if connOpts != nil {
		opts = *connOpts
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("portkey: marshal request: %w", err)
	}

	// The timeout bounds connection establishment and response headers,
	// not the body: the timer is disarmed once the stream is handed over.
	ctx, cancel := context.WithCancel(ctx)
	var timedOut atomic.Bool
	var timer *time.Timer
	if opts.Timeout > 0 {
		timer = time.AfterFunc(opts.Timeout, func() {
			timedOut.Store(true)
			cancel()
		})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("portkey: create request: %w", err)
	}
	l.setHeaders(httpReq)

	resp, err := l.httpClient.Do(httpReq)
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		cancel()
		if timedOut.Load() {
			return nil, agent.NewTimeoutError(true)
		}
		return nil, agent.NewConnectionError(err, true)
	}
	if resp.StatusCode >= 400 {
		defer cancel()
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

// cancelOnClose releases the request context when the stream is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}

// setHeaders attaches the gateway routing headers.
func (l *LLM) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-portkey-api-key", l.apiKey)
	if l.opts.VirtualKey != "" {
		req.Header.Set("x-portkey-virtual-key", l.opts.VirtualKey)
	}
	if l.opts.Config != "" {
		req.Header.Set("x-portkey-config", l.opts.Config)
	}
	if l.opts.Provider != "" {
		req.Header.Set("x-portkey-provider", l.opts.Provider)
	}
	if l.opts.TraceID != "" {
		req.Header.Set("x-portkey-trace-id", l.opts.TraceID)
	}
	if len(l.opts.Metadata) > 0 {
		if meta, err := json.Marshal(l.opts.Metadata); err == nil {
			req.Header.Set("x-portkey-metadata", string(meta))
		}
	}
}

// errorResponse is the OpenAI-compatible error body.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	message := "completion request failed"
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	return agent.NewStatusError(message, resp.StatusCode,
		resp.Header.Get("x-portkey-trace-id"), strings.TrimSpace(string(body)))
}
