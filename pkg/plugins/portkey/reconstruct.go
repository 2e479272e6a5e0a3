package portkey

import (
	"sort"
	"strings"

	"github.com/moderatehq/voiceworker/pkg/llm"
)

// pendingCall accumulates one tool call's streamed fragments.
type pendingCall struct {
	callID string
	name   string
	args   strings.Builder
}

// reconstructor reassembles tool calls that arrive fragmented across
// streaming chunks, keyed by tool-call index so interleaved providers
// cannot corrupt each other's arguments. Text content passes through
// immediately; a tool call is emitted only once it is complete.
//
// Not safe for concurrent use: one reconstructor per stream, chunks fed
// in arrival order.
type reconstructor struct {
	requestID string
	calls     map[int]*pendingCall

	// onOrphan is invoked when an arguments-only fragment arrives with
	// no open call at its index. Such fragments are dropped.
	onOrphan func(index int)
}

func newReconstructor(onOrphan func(index int)) *reconstructor {
	return &reconstructor{
		calls:    make(map[int]*pendingCall),
		onOrphan: onOrphan,
	}
}

// terminalFinishReason reports whether reason completes the response.
// Anything else ("length", "content_filter", unknown values) does not
// finalize open tool calls.
func terminalFinishReason(reason string) bool {
	return reason == "stop" || reason == "tool_calls"
}

// process consumes one chunk and returns the events it produced, in
// order: a content update if the delta carries text, tool calls
// completed by this chunk in ascending index order, and a usage update
// if the chunk carries token counts. Most chunks produce zero or one.
func (r *reconstructor) process(chunk *wireChunk) []*llm.ChatChunk {
	if chunk == nil {
		return nil
	}
	if chunk.ID != "" {
		r.requestID = chunk.ID
	}

	var events []*llm.ChatChunk

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			events = append(events, &llm.ChatChunk{
				RequestID: r.requestID,
				Choices: []llm.Choice{{
					Delta: llm.ChoiceDelta{
						Role:    llm.RoleAssistant,
						Content: choice.Delta.Content,
					},
				}},
			})
		}

		for _, frag := range choice.Delta.ToolCalls {
			if frag.Function.Name != "" {
				// A new call starts: everything still open at other
				// indices has finished streaming.
				events = append(events, r.flushExcept(frag.Index)...)
				call := &pendingCall{
					callID: frag.ID,
					name:   frag.Function.Name,
				}
				call.args.WriteString(frag.Function.Arguments)
				r.calls[frag.Index] = call
				continue
			}
			call, open := r.calls[frag.Index]
			if !open {
				if r.onOrphan != nil {
					r.onOrphan(frag.Index)
				}
				continue
			}
			if frag.ID != "" {
				call.callID = frag.ID
			}
			call.args.WriteString(frag.Function.Arguments)
		}

		if terminalFinishReason(choice.FinishReason) {
			events = append(events, r.flushExcept(-1)...)
		}
	}

	if chunk.Usage != nil {
		events = append(events, &llm.ChatChunk{
			RequestID: r.requestID,
			Usage: &llm.CompletionUsage{
				CompletionTokens: chunk.Usage.CompletionTokens,
				PromptTokens:     chunk.Usage.PromptTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
		})
	}

	return events
}

// flushExcept finalizes every open call whose index differs from keep,
// in ascending index order. Pass a negative keep to flush everything.
func (r *reconstructor) flushExcept(keep int) []*llm.ChatChunk {
	if len(r.calls) == 0 {
		return nil
	}
	indices := make([]int, 0, len(r.calls))
	for idx := range r.calls {
		if idx != keep {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	var events []*llm.ChatChunk
	for _, idx := range indices {
		call := r.calls[idx]
		delete(r.calls, idx)
		events = append(events, &llm.ChatChunk{
			RequestID: r.requestID,
			Choices: []llm.Choice{{
				Delta: llm.ChoiceDelta{
					Role: llm.RoleAssistant,
					ToolCalls: []llm.FunctionCallInfo{{
						CallID:       call.callID,
						FunctionName: call.name,
						RawArguments: call.args.String(),
					}},
				},
			}},
		})
	}
	return events
}
