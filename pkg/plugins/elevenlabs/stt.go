// Package elevenlabs exposes ElevenLabs speech-to-text and text-to-speech
// as provider plugins.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/moderatehq/voiceworker/pkg/agent"
	"github.com/moderatehq/voiceworker/pkg/stt"
)

const defaultAPIBase = "https://api.elevenlabs.io"

// DefaultSTTModel is the batch transcription model.
const DefaultSTTModel = "scribe_v1"

// STTOptions configure the ElevenLabs speech-to-text plugin.
type STTOptions struct {
	// APIKey falls back to the ELEVEN_API_KEY environment variable.
	APIKey string
	// Model defaults to scribe_v1.
	Model string
	// Language is an ISO 639 code; empty means auto-detect.
	Language string
	// TagAudioEvents asks the model to mark non-speech sounds.
	TagAudioEvents bool
	// BaseURL overrides the API endpoint (for tests).
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// STT transcribes complete utterances through the batch scribe API.
type STT struct {
	apiKey     string
	opts       STTOptions
	httpClient *http.Client
}

// NewSTT creates the plugin. The API key is taken from opts or the
// ELEVEN_API_KEY environment variable.
func NewSTT(opts STTOptions) (*STT, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ELEVEN_API_KEY")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("elevenlabs stt: api key not provided and ELEVEN_API_KEY not set")
	}
	if opts.Model == "" {
		opts.Model = DefaultSTTModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAPIBase
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &STT{
		apiKey:     strings.TrimSpace(apiKey),
		opts:       opts,
		httpClient: client,
	}, nil
}

// Capabilities reports batch-only recognition.
func (s *STT) Capabilities() stt.Capabilities {
	return stt.Capabilities{Streaming: false, InterimResults: false}
}

type sttResponse struct {
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Text                string  `json:"text"`
	Words               []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Type  string  `json:"type"`
	} `json:"words"`
}

// Recognize transcribes a complete audio file.
func (s *STT) Recognize(ctx context.Context, audio io.Reader, opts stt.RecognizeOptions) (*stt.SpeechEvent, error) {
	connOpts := agent.DefaultConnectOptions()
	if opts.ConnectOptions != nil {
		connOpts = *opts.ConnectOptions
	}
	if connOpts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, connOpts.Timeout)
		defer cancel()
	}

	language := s.opts.Language
	if opts.Language != "" {
		language = opts.Language
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs stt: create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, fmt.Errorf("elevenlabs stt: write audio data: %w", err)
	}
	if err := mw.WriteField("model_id", s.opts.Model); err != nil {
		return nil, fmt.Errorf("elevenlabs stt: write model field: %w", err)
	}
	if language != "" {
		if err := mw.WriteField("language_code", language); err != nil {
			return nil, fmt.Errorf("elevenlabs stt: write language field: %w", err)
		}
	}
	if err := mw.WriteField("tag_audio_events", strconv.FormatBool(s.opts.TagAudioEvents)); err != nil {
		return nil, fmt.Errorf("elevenlabs stt: write tag field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("elevenlabs stt: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.BaseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs stt: create request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, agent.NewTimeoutError(true)
		}
		return nil, agent.NewConnectionError(err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, agent.NewStatusError("elevenlabs transcription failed", resp.StatusCode,
			resp.Header.Get("request-id"), strings.TrimSpace(string(body)))
	}

	var out sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("elevenlabs stt: parse response: %w", err)
	}

	words := make([]stt.SpeechWord, 0, len(out.Words))
	for _, w := range out.Words {
		if w.Type == "spacing" {
			continue
		}
		words = append(words, stt.SpeechWord{
			Text:  w.Text,
			Start: w.Start,
			End:   w.End,
			Type:  w.Type,
		})
	}

	return &stt.SpeechEvent{
		Type: stt.EventFinalTranscript,
		Alternatives: []stt.SpeechData{{
			Text:                out.Text,
			Language:            out.LanguageCode,
			LanguageProbability: out.LanguageProbability,
			Words:               words,
		}},
	}, nil
}
