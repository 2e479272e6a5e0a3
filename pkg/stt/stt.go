// Package stt defines the speech-to-text interface implemented by STT
// provider plugins.
package stt

import (
	"context"
	"io"

	"github.com/moderatehq/voiceworker/pkg/agent"
)

// Capabilities describes what an STT provider supports.
type Capabilities struct {
	Streaming      bool
	InterimResults bool
}

// RecognizeOptions are the per-call overrides accepted by Recognize.
type RecognizeOptions struct {
	// Language overrides the plugin's configured language for this call.
	Language       string
	ConnectOptions *agent.ConnectOptions
}

// STT is the interface speech-to-text plugins implement. Audio is a
// complete utterance (WAV-encoded); streaming recognition is a provider
// capability this worker does not require.
type STT interface {
	Capabilities() Capabilities
	Recognize(ctx context.Context, audio io.Reader, opts RecognizeOptions) (*SpeechEvent, error)
}

// SpeechEventType distinguishes interim from final recognition results.
type SpeechEventType string

const (
	EventInterimTranscript SpeechEventType = "interim_transcript"
	EventFinalTranscript   SpeechEventType = "final_transcript"
)

// SpeechEvent is a recognition result.
type SpeechEvent struct {
	Type         SpeechEventType
	Alternatives []SpeechData
}

// SpeechData is one recognition alternative.
type SpeechData struct {
	Text                string
	Language            string
	LanguageProbability float64
	Words               []SpeechWord
}

// SpeechWord carries word-level timing within an utterance.
type SpeechWord struct {
	Text  string
	Start float64
	End   float64
	Type  string
}
