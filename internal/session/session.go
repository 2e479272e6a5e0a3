// Package session holds the mutable state a running interaction session
// shares between handlers: the live chat context and the transcript
// recorder.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/moderatehq/voiceworker/internal/transcript"
	"github.com/moderatehq/voiceworker/pkg/llm"
)

// screenDescriptionSlot is the chat context index reserved for the
// current screen's system description.
const screenDescriptionSlot = 1

// SpeechCommittedFunc is invoked after an externally sourced message has
// been appended to the chat context.
type SpeechCommittedFunc func(msg llm.ChatMessage, tt transcript.TimedTranscript)

// Session is safe for concurrent use by multiple handlers.
type Session struct {
	id string

	mu      sync.Mutex
	chatCtx *llm.ChatContext
	store   *transcript.Store
	onUser  SpeechCommittedFunc
}

// New wraps an existing chat context. store may be nil when transcript
// persistence is not wanted.
func New(chatCtx *llm.ChatContext, store *transcript.Store) *Session {
	if chatCtx == nil {
		chatCtx = llm.NewChatContext()
	}
	return &Session{
		id:      uuid.NewString(),
		chatCtx: chatCtx,
		store:   store,
	}
}

// ID returns the generated session identifier.
func (s *Session) ID() string { return s.id }

// ChatContext returns the live chat context. Callers that mutate it
// directly bypass the transcript recorder.
func (s *Session) ChatContext() *llm.ChatContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCtx
}

// OnUserSpeechCommitted registers the hook fired after each committed
// user message. Passing nil clears it.
func (s *Session) OnUserSpeechCommitted(fn SpeechCommittedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUser = fn
}

// CommitUserMessage appends content to the chat context as a user
// message, records it as a timed transcript and fires the
// speech-committed hook.
func (s *Session) CommitUserMessage(content string, timestamp float64) {
	msg := llm.ChatMessage{Role: llm.RoleUser, Content: content}
	tt := transcript.TimedTranscript{
		Type:    transcript.TypeTranscript,
		Role:    string(llm.RoleUser),
		Content: content,
		Start:   timestamp,
		End:     timestamp,
		Words:   []transcript.Word{},
	}

	s.mu.Lock()
	s.chatCtx.Append(msg)
	if s.store != nil {
		s.store.Append(tt)
	}
	fn := s.onUser
	s.mu.Unlock()

	if fn != nil {
		fn(msg, tt)
	}
}

// SetScreenDescription replaces the system message slot that carries the
// current screen's description. A no-op until the context has grown past
// the slot.
func (s *Session) SetScreenDescription(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatCtx.UpdateMessage(screenDescriptionSlot, llm.ChatMessage{
		Role:    llm.RoleSystem,
		Content: content,
	})
}
