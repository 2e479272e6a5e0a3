package portkey

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moderatehq/voiceworker/pkg/llm"
)

func sseBody(frames ...string) io.ReadCloser {
	var b strings.Builder
	for _, frame := range frames {
		b.WriteString("data: ")
		b.WriteString(frame)
		b.WriteString("\n\n")
	}
	return io.NopCloser(strings.NewReader(b.String()))
}

func drainStream(t *testing.T, s *chatStream) []*llm.ChatChunk {
	t.Helper()
	var chunks []*llm.ChatChunk
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

func TestChatStream_ContentAndToolCall(t *testing.T) {
	body := sseBody(
		`{"id":"req-1","choices":[{"index":0,"delta":{"role":"assistant","content":"Let me check."}}]}`,
		`{"id":"req-1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":"{\"q\":"}}]}}]}`,
		`{"id":"req-1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"weather\"}"}}]}}]}`,
		`{"id":"req-1","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		`{"id":"req-1","choices":[],"usage":{"prompt_tokens":20,"completion_tokens":7,"total_tokens":27}}`,
		`[DONE]`,
	)

	stream := newChatStream(body, slog.Default())
	chunks := drainStream(t, stream)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Let me check.", chunks[0].Choices[0].Delta.Content)

	call := chunks[1].Choices[0].Delta.ToolCalls[0]
	assert.Equal(t, "call_1", call.CallID)
	assert.Equal(t, "lookup", call.FunctionName)
	assert.Equal(t, `{"q":"weather"}`, call.RawArguments)

	require.NotNil(t, chunks[2].Usage)
	assert.Equal(t, 27, chunks[2].Usage.TotalTokens)

	// Exhausted streams keep returning EOF.
	_, err := stream.Next()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, stream.Close())
}

func TestChatStream_PendingQueue(t *testing.T) {
	// One wire chunk carrying both content and usage yields two
	// normalized chunks across consecutive Next calls.
	body := sseBody(
		`{"id":"req-2","choices":[{"index":0,"delta":{"content":"done"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`,
		`[DONE]`,
	)

	stream := newChatStream(body, slog.Default())

	first, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "done", first.Choices[0].Delta.Content)
	assert.Nil(t, first.Usage)

	second, err := stream.Next()
	require.NoError(t, err)
	require.NotNil(t, second.Usage)
	assert.Equal(t, 2, second.Usage.TotalTokens)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChatStream_SkipsGarbageFrames(t *testing.T) {
	body := sseBody(
		`this is not json`,
		`{"id":"req-3","choices":[{"index":0,"delta":{"content":"ok"}}]}`,
		`[DONE]`,
	)

	stream := newChatStream(body, slog.Default())
	chunks := drainStream(t, stream)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ok", chunks[0].Choices[0].Delta.Content)
}

func TestChatStream_EOFWithoutDone(t *testing.T) {
	body := io.NopCloser(strings.NewReader(
		"data: {\"id\":\"req-4\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"partial\"}}]}\n"))

	stream := newChatStream(body, slog.Default())
	chunks := drainStream(t, stream)
	require.Len(t, chunks, 1)
	assert.Equal(t, "partial", chunks[0].Choices[0].Delta.Content)
}
