package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moderatehq/voiceworker/internal/transcript"
	"github.com/moderatehq/voiceworker/pkg/llm"
)

func TestSession_CommitUserMessage(t *testing.T) {
	chatCtx := llm.NewChatContext()
	store := transcript.NewStore(t.TempDir(), "room-1")
	sess := New(chatCtx, store)

	var gotMsg llm.ChatMessage
	var gotTT transcript.TimedTranscript
	calls := 0
	sess.OnUserSpeechCommitted(func(msg llm.ChatMessage, tt transcript.TimedTranscript) {
		gotMsg, gotTT = msg, tt
		calls++
	})

	sess.CommitUserMessage("[[Clicked on 'Login' on 'Home' screen]]", 1700000000)

	require.Len(t, chatCtx.Messages, 1)
	assert.Equal(t, llm.RoleUser, chatCtx.Messages[0].Role)

	require.Equal(t, 1, calls)
	assert.Equal(t, chatCtx.Messages[0], gotMsg)
	assert.Equal(t, transcript.TypeTranscript, gotTT.Type)
	assert.Equal(t, float64(1700000000), gotTT.Start)
	assert.Equal(t, gotTT.Start, gotTT.End)
	assert.Empty(t, gotTT.Words)

	require.Equal(t, 1, store.Len())
	assert.Equal(t, gotTT, store.Entries()[0])
}

func TestSession_CommitWithoutStoreOrHook(t *testing.T) {
	sess := New(nil, nil)
	sess.CommitUserMessage("hello", 1)
	assert.Len(t, sess.ChatContext().Messages, 1)
}

func TestSession_SetScreenDescription(t *testing.T) {
	chatCtx := llm.NewChatContext()
	chatCtx.Append(llm.ChatMessage{Role: llm.RoleSystem, Content: "base"})
	chatCtx.Append(llm.ChatMessage{Role: llm.RoleSystem, Content: "old screen"})
	sess := New(chatCtx, nil)

	sess.SetScreenDescription("### Description of Home: landing page ###")

	require.Len(t, chatCtx.Messages, 2)
	assert.Equal(t, "### Description of Home: landing page ###", chatCtx.Messages[1].Content)
	assert.Equal(t, llm.RoleSystem, chatCtx.Messages[1].Role)
}

func TestSession_SetScreenDescription_ShortContextIsNoop(t *testing.T) {
	sess := New(llm.NewChatContext(), nil)
	sess.SetScreenDescription("ignored")
	assert.Empty(t, sess.ChatContext().Messages)
}

func TestSession_ID(t *testing.T) {
	a, b := New(nil, nil), New(nil, nil)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
