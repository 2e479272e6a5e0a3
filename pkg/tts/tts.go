// Package tts defines the text-to-speech interface implemented by TTS
// provider plugins, plus the streaming plumbing shared between them.
package tts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Capabilities describes what a TTS provider supports.
type Capabilities struct {
	Streaming bool
}

// SynthesizeOptions configure one synthesis call.
type SynthesizeOptions struct {
	Voice      string  // provider voice/speaker identifier
	Language   string  // language code
	Pitch      float64 // pitch adjustment, provider-specific range
	Pace       float64 // speaking pace multiplier
	Loudness   float64 // loudness multiplier
	SampleRate int     // output sample rate in Hz
	Format     string  // output format hint ("wav", "pcm", "mp3")
}

// Synthesis is the result of a non-streaming synthesis call.
type Synthesis struct {
	Audio      []byte
	Format     string
	SampleRate int
	Channels   int
}

// TTS is the interface text-to-speech plugins implement.
type TTS interface {
	Capabilities() Capabilities

	// Synthesize converts text to a complete audio buffer.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)

	// SynthesizeStream converts text to audio delivered incrementally.
	SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error)
}

// StreamingTTS is implemented by providers that accept incremental text
// input over a persistent connection.
type StreamingTTS interface {
	TTS
	NewStreamingContext(ctx context.Context, opts SynthesizeOptions) (*StreamingContext, error)
}

// ErrContextClosed is returned when sending to a closed streaming context.
var ErrContextClosed = errors.New("tts: streaming context closed")

// StreamingContext manages an incremental synthesis session: text goes in
// via SendText, audio chunks come out on Audio. Provider implementations
// fill in SendFunc/CloseFunc and push audio from their receive loop.
type StreamingContext struct {
	audio     chan []byte
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once

	errMu sync.Mutex
	err   error

	SendFunc  func(text string, flush bool) error
	CloseFunc func() error
}

// NewStreamingContext creates a streaming context with a buffered audio
// channel.
func NewStreamingContext() *StreamingContext {
	return &StreamingContext{
		audio: make(chan []byte, 64),
		done:  make(chan struct{}),
	}
}

// SendText forwards a text fragment to the provider. Set flush to force
// generation of everything buffered so far.
func (sc *StreamingContext) SendText(text string, flush bool) error {
	if sc.closed.Load() {
		return ErrContextClosed
	}
	if sc.SendFunc != nil {
		return sc.SendFunc(text, flush)
	}
	return nil
}

// Flush signals that all text has been sent.
func (sc *StreamingContext) Flush() error {
	return sc.SendText("", true)
}

// Audio returns the channel of synthesized audio chunks. It is closed when
// the session ends.
func (sc *StreamingContext) Audio() <-chan []byte {
	return sc.audio
}

// Done returns a channel closed when the context is closed.
func (sc *StreamingContext) Done() <-chan struct{} {
	return sc.done
}

// Err returns the first error recorded by the provider, if any.
func (sc *StreamingContext) Err() error {
	sc.errMu.Lock()
	defer sc.errMu.Unlock()
	return sc.err
}

// Close tears the session down.
func (sc *StreamingContext) Close() error {
	var err error
	sc.closeOnce.Do(func() {
		sc.closed.Store(true)
		if sc.CloseFunc != nil {
			err = sc.CloseFunc()
		}
		close(sc.done)
	})
	return err
}

// PushAudio delivers a chunk to the consumer. Returns false if the
// context was closed.
func (sc *StreamingContext) PushAudio(chunk []byte) bool {
	select {
	case sc.audio <- chunk:
		return true
	case <-sc.done:
		return false
	}
}

// SetError records a provider error for later retrieval via Err.
func (sc *StreamingContext) SetError(err error) {
	sc.errMu.Lock()
	sc.err = err
	sc.errMu.Unlock()
}

// FinishAudio closes the audio channel. Call exactly once, from the
// provider's receive loop.
func (sc *StreamingContext) FinishAudio() {
	close(sc.audio)
}

// SynthesisStream delivers the audio of a single synthesis incrementally.
type SynthesisStream struct {
	chunks    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// NewSynthesisStream creates an open synthesis stream.
func NewSynthesisStream() *SynthesisStream {
	return &SynthesisStream{
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

// Chunks returns the channel of audio chunks. It is closed when synthesis
// completes.
func (s *SynthesisStream) Chunks() <-chan []byte {
	return s.chunks
}

// Err blocks until the stream finishes and returns its terminal error.
func (s *SynthesisStream) Err() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close abandons the stream.
func (s *SynthesisStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Send delivers a chunk to the consumer. Returns false once closed.
func (s *SynthesisStream) Send(chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// SetError records the stream's terminal error.
func (s *SynthesisStream) SetError(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// FinishSending closes the chunk channel and releases Err waiters.
func (s *SynthesisStream) FinishSending() {
	close(s.chunks)
	s.closeOnce.Do(func() { close(s.done) })
}
