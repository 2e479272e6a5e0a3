// Package sarvam is a client for the Sarvam.AI translation, text-to-speech,
// and speech-to-text REST APIs.
package sarvam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// DefaultBaseURL is the production Sarvam API endpoint.
const DefaultBaseURL = "https://api.sarvam.ai"

// Client calls the Sarvam API. Construct with New and share freely; it is
// safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// APIError is a non-2xx response from the Sarvam API.
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sarvam: %s error (%d): %s", e.Path, e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (for tests or proxies).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request debugging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Sarvam client. The API subscription key is required.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("sarvam: api subscription key is required")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TranslateParams are the optional knobs for TranslateText.
type TranslateParams struct {
	SpeakerGender       SpeakerGender
	Mode                TranslationMode
	EnablePreprocessing *bool
	OutputScript        OutputScript
	NumeralsFormat      NumeralsFormat
}

// TranslateText translates input between two supported languages. Input is
// capped at 1000 characters by the API.
func (c *Client) TranslateText(ctx context.Context, input string, source, target LanguageCode, params TranslateParams) (*TranslateResponse, error) {
	if input == "" {
		return nil, fmt.Errorf("sarvam: input text is required")
	}
	if len(input) > 1000 {
		return nil, fmt.Errorf("sarvam: input text must be no longer than 1000 characters")
	}

	payload := map[string]any{
		"input":                input,
		"source_language_code": source,
		"target_language_code": target,
	}
	if params.SpeakerGender != "" {
		payload["speaker_gender"] = params.SpeakerGender
	}
	if params.Mode != "" {
		payload["mode"] = params.Mode
	}
	if params.EnablePreprocessing != nil {
		payload["enable_preprocessing"] = *params.EnablePreprocessing
	}
	if params.OutputScript != "" {
		payload["output_script"] = params.OutputScript
	}
	if params.NumeralsFormat != "" {
		payload["numerals_format"] = params.NumeralsFormat
	}

	var out TranslateResponse
	if err := c.postJSON(ctx, "/translate", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TTSParams are the optional knobs for TextToSpeech.
type TTSParams struct {
	Speaker             Speaker
	Pitch               *float64 // -0.75 to 0.75
	Pace                *float64 // 0.5 to 2.0
	Loudness            *float64 // 0.3 to 3.0
	SampleRate          int
	EnablePreprocessing *bool
	Model               TTSModel
}

// TextToSpeech synthesizes up to three texts in the target language. Each
// text is capped at 500 characters by the API.
func (c *Client) TextToSpeech(ctx context.Context, texts []string, language LanguageCode, params TTSParams) (*TTSResponse, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("sarvam: at least one input text is required")
	}
	if len(texts) > 3 {
		return nil, fmt.Errorf("sarvam: maximum 3 input texts are allowed")
	}
	for _, t := range texts {
		if len(t) > 500 {
			return nil, fmt.Errorf("sarvam: each text must be no longer than 500 characters")
		}
	}
	if params.Pitch != nil && (*params.Pitch < -0.75 || *params.Pitch > 0.75) {
		return nil, fmt.Errorf("sarvam: pitch must be between -0.75 and 0.75")
	}
	if params.Pace != nil && (*params.Pace < 0.5 || *params.Pace > 2.0) {
		return nil, fmt.Errorf("sarvam: pace must be between 0.5 and 2.0")
	}
	if params.Loudness != nil && (*params.Loudness < 0.3 || *params.Loudness > 3.0) {
		return nil, fmt.Errorf("sarvam: loudness must be between 0.3 and 3.0")
	}

	payload := map[string]any{
		"inputs":               texts,
		"target_language_code": language,
	}
	if params.Speaker != "" {
		payload["speaker"] = params.Speaker
	}
	if params.Pitch != nil {
		payload["pitch"] = *params.Pitch
	}
	if params.Pace != nil {
		payload["pace"] = *params.Pace
	}
	if params.Loudness != nil {
		payload["loudness"] = *params.Loudness
	}
	if params.SampleRate != 0 {
		payload["speech_sample_rate"] = params.SampleRate
	}
	if params.EnablePreprocessing != nil {
		payload["enable_preprocessing"] = *params.EnablePreprocessing
	}
	if params.Model != "" {
		payload["model"] = params.Model
	}

	var out TTSResponse
	if err := c.postJSON(ctx, "/text-to-speech", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// STTParams are the optional knobs for SpeechToText.
type STTParams struct {
	Model           STTModel
	LanguageCode    LanguageCode
	WithTimestamps  *bool
	WithDiarization *bool
	NumSpeakers     int
}

// SpeechToText transcribes a single audio file. saarika:v1 requires an
// explicit language; later models auto-detect when the language is unknown
// or unset.
func (c *Client) SpeechToText(ctx context.Context, filename string, audio io.Reader, params STTParams) (*STTResponse, error) {
	if params.Model == STTModelSaarikaV1 && (params.LanguageCode == "" || params.LanguageCode == Unknown) {
		return nil, fmt.Errorf("sarvam: language_code is required for the %s model and cannot be %q", STTModelSaarikaV1, Unknown)
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("sarvam: create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, fmt.Errorf("sarvam: write audio data: %w", err)
	}
	if params.Model != "" {
		if err := mw.WriteField("model", string(params.Model)); err != nil {
			return nil, fmt.Errorf("sarvam: write model field: %w", err)
		}
	}
	if params.LanguageCode != "" {
		if err := mw.WriteField("language_code", string(params.LanguageCode)); err != nil {
			return nil, fmt.Errorf("sarvam: write language field: %w", err)
		}
	}
	if params.WithTimestamps != nil {
		if err := mw.WriteField("with_timestamps", strconv.FormatBool(*params.WithTimestamps)); err != nil {
			return nil, fmt.Errorf("sarvam: write timestamps field: %w", err)
		}
	}
	if params.WithDiarization != nil {
		if err := mw.WriteField("with_diarization", strconv.FormatBool(*params.WithDiarization)); err != nil {
			return nil, fmt.Errorf("sarvam: write diarization field: %w", err)
		}
	}
	if params.NumSpeakers > 0 {
		if err := mw.WriteField("num_speakers", strconv.Itoa(params.NumSpeakers)); err != nil {
			return nil, fmt.Errorf("sarvam: write num_speakers field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("sarvam: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &buf)
	if err != nil {
		return nil, fmt.Errorf("sarvam: create request: %w", err)
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out STTResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("sarvam stt response", "transcript_len", len(out.Transcript))
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sarvam: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sarvam: create request: %w", err)
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sarvam api request", "path", path)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sarvam: %s request: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sarvam: parse response: %w", err)
	}
	return nil
}
