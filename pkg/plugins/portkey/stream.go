package portkey

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/moderatehq/voiceworker/pkg/llm"
)

// wireChunk is the OpenAI-compatible streaming chunk format.
type wireChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role      string          `json:"role,omitempty"`
			Content   string          `json:"content,omitempty"`
			ToolCalls []toolCallDelta `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// toolCallDelta is one tool-call fragment within a streaming delta.
type toolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// chatStream reads SSE frames from the response body and yields
// normalized chunks. A single wire chunk can produce several events
// (content plus finalized tool calls plus usage); extras are queued and
// returned by subsequent Next calls.
type chatStream struct {
	reader *bufio.Reader
	closer io.Closer
	recon  *reconstructor
	logger *slog.Logger

	pending  []*llm.ChatChunk
	err      error
	finished bool
}

func newChatStream(body io.ReadCloser, logger *slog.Logger) *chatStream {
	s := &chatStream{
		reader: bufio.NewReader(body),
		closer: body,
		logger: logger,
	}
	s.recon = newReconstructor(func(index int) {
		logger.Warn("dropping tool call fragment with no open call", "tool_index", index)
	})
	return s
}

// Next returns the next normalized chunk, or io.EOF when the stream is
// complete.
func (s *chatStream) Next() (*llm.ChatChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.pending) > 0 {
		chunk := s.pending[0]
		s.pending = s.pending[1:]
		return chunk, nil
	}
	if s.finished {
		return nil, io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.finished = true
				return nil, io.EOF
			}
			s.err = err
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.finished = true
			return nil, io.EOF
		}

		var chunk wireChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.logger.Warn("skipping unparseable stream chunk", "error", err)
			continue
		}

		events := s.recon.process(&chunk)
		if len(events) == 0 {
			continue
		}
		s.pending = events[1:]
		return events[0], nil
	}
}

// Close releases the underlying response body.
func (s *chatStream) Close() error {
	return s.closer.Close()
}
