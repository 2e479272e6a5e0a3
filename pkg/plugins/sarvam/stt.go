// Package sarvam exposes Sarvam.AI speech-to-text, text-to-speech, and
// translation as provider plugins.
package sarvam

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/moderatehq/voiceworker/internal/sarvam"
	"github.com/moderatehq/voiceworker/pkg/agent"
	"github.com/moderatehq/voiceworker/pkg/stt"
)

// STTOptions configure the Sarvam speech-to-text plugin.
type STTOptions struct {
	// APIKey falls back to the SARVAM_API_KEY environment variable.
	APIKey string
	// Model defaults to saarika:v2.
	Model sarvam.STTModel
	// Language defaults to unknown, which asks the API to auto-detect.
	Language sarvam.LanguageCode
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// STT recognizes complete utterances through the Sarvam batch API.
type STT struct {
	client *sarvam.Client

	mu       sync.Mutex
	model    sarvam.STTModel
	language sarvam.LanguageCode
}

// NewSTT creates the plugin. The API key is taken from opts or the
// SARVAM_API_KEY environment variable.
func NewSTT(opts STTOptions) (*STT, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("SARVAM_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("sarvam stt: api key not provided and SARVAM_API_KEY not set")
	}

	var clientOpts []sarvam.Option
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, sarvam.WithBaseURL(opts.BaseURL))
	}
	client, err := sarvam.New(apiKey, clientOpts...)
	if err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = sarvam.STTModelSaarikaV2
	}
	language := opts.Language
	if language == "" {
		language = sarvam.Unknown
	}
	return &STT{client: client, model: model, language: language}, nil
}

// Capabilities reports batch-only recognition.
func (s *STT) Capabilities() stt.Capabilities {
	return stt.Capabilities{Streaming: false, InterimResults: false}
}

// UpdateOptions changes the configured language and/or model for
// subsequent calls. Empty values leave the current setting untouched.
func (s *STT) UpdateOptions(language sarvam.LanguageCode, model sarvam.STTModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if language != "" {
		s.language = language
	}
	if model != "" {
		s.model = model
	}
}

// Recognize transcribes a complete WAV utterance.
func (s *STT) Recognize(ctx context.Context, audio io.Reader, opts stt.RecognizeOptions) (*stt.SpeechEvent, error) {
	s.mu.Lock()
	model := s.model
	language := s.language
	s.mu.Unlock()

	if opts.Language != "" {
		language = sarvam.LanguageCode(opts.Language)
	}

	connOpts := agent.DefaultConnectOptions()
	if opts.ConnectOptions != nil {
		connOpts = *opts.ConnectOptions
	}
	if connOpts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, connOpts.Timeout)
		defer cancel()
	}

	withTS := true
	resp, err := s.client.SpeechToText(ctx, "audio.wav", audio, sarvam.STTParams{
		Model:          model,
		LanguageCode:   language,
		WithTimestamps: &withTS,
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &stt.SpeechEvent{
		Type: stt.EventFinalTranscript,
		Alternatives: []stt.SpeechData{{
			Text:     resp.Transcript,
			Language: resp.LanguageCode,
			Words:    wordsFromTimestamps(resp.Timestamps),
		}},
	}, nil
}

// wordsFromTimestamps zips the API's parallel timestamp arrays into word
// entries. Mismatched lengths truncate to the shortest.
func wordsFromTimestamps(ts *sarvam.STTTimestamps) []stt.SpeechWord {
	if ts == nil {
		return nil
	}
	n := len(ts.Words)
	if len(ts.StartTimeSeconds) < n {
		n = len(ts.StartTimeSeconds)
	}
	if len(ts.EndTimeSeconds) < n {
		n = len(ts.EndTimeSeconds)
	}
	words := make([]stt.SpeechWord, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, stt.SpeechWord{
			Text:  ts.Words[i],
			Start: ts.StartTimeSeconds[i],
			End:   ts.EndTimeSeconds[i],
			Type:  "word",
		})
	}
	return words
}
