package sarvam

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/moderatehq/voiceworker/internal/sarvam"
	"github.com/moderatehq/voiceworker/pkg/tts"
)

// maxTextLen is the per-input character limit of the synthesis API.
const maxTextLen = 500

// wavHeaderLen is the canonical RIFF header size. Chunks after the first
// have it stripped before concatenation.
const wavHeaderLen = 44

// TTSOptions configure the Sarvam text-to-speech plugin.
type TTSOptions struct {
	// APIKey falls back to the SARVAM_API_KEY environment variable.
	APIKey string
	// Model defaults to bulbul:v1.
	Model sarvam.TTSModel
	// Speaker defaults to meera.
	Speaker sarvam.Speaker
	// Language defaults to hi-IN.
	Language sarvam.LanguageCode
	// SampleRate defaults to 22050.
	SampleRate int
	Pitch      *float64
	Pace       *float64
	Loudness   *float64
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// TTS synthesizes speech through the Sarvam batch API. Long texts are
// split on sentence boundaries and synthesized in consecutive requests.
type TTS struct {
	client *sarvam.Client

	mu   sync.Mutex
	opts TTSOptions
}

// NewTTS creates the plugin. The API key is taken from opts or the
// SARVAM_API_KEY environment variable.
func NewTTS(opts TTSOptions) (*TTS, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("SARVAM_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("sarvam tts: api key not provided and SARVAM_API_KEY not set")
	}

	var clientOpts []sarvam.Option
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, sarvam.WithBaseURL(opts.BaseURL))
	}
	client, err := sarvam.New(apiKey, clientOpts...)
	if err != nil {
		return nil, err
	}

	if opts.Model == "" {
		opts.Model = sarvam.TTSModelBulbulV1
	}
	if opts.Speaker == "" {
		opts.Speaker = sarvam.SpeakerMeera
	}
	if opts.Language == "" {
		opts.Language = sarvam.Hindi
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = sarvam.SampleRateHigh
	}
	return &TTS{client: client, opts: opts}, nil
}

// Capabilities reports batch synthesis only.
func (t *TTS) Capabilities() tts.Capabilities {
	return tts.Capabilities{Streaming: false}
}

// UpdateOptions changes the configured speaker and/or language for
// subsequent calls. Empty values leave the current setting untouched.
func (t *TTS) UpdateOptions(speaker sarvam.Speaker, language sarvam.LanguageCode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if speaker != "" {
		t.opts.Speaker = speaker
	}
	if language != "" {
		t.opts.Language = language
	}
}

// Synthesize converts text to a single WAV buffer. Texts longer than the
// API limit are chunked; the chunks' WAV payloads are concatenated under
// the first chunk's header.
func (t *TTS) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOptions) (*tts.Synthesis, error) {
	params, language := t.resolve(opts)

	var audio []byte
	for _, batch := range batchTexts(chunkText(text, maxTextLen), 3) {
		resp, err := t.client.TextToSpeech(ctx, batch, language, params)
		if err != nil {
			return nil, translateError(err)
		}
		for _, enc := range resp.Audios {
			raw, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return nil, fmt.Errorf("sarvam tts: decode audio: %w", err)
			}
			audio = appendWAV(audio, raw)
		}
	}

	return &tts.Synthesis{
		Audio:      audio,
		Format:     "wav",
		SampleRate: params.SampleRate,
		Channels:   1,
	}, nil
}

// SynthesizeStream synthesizes chunk by chunk, delivering each chunk's
// audio as soon as its request completes.
func (t *TTS) SynthesizeStream(ctx context.Context, text string, opts tts.SynthesizeOptions) (*tts.SynthesisStream, error) {
	params, language := t.resolve(opts)
	stream := tts.NewSynthesisStream()

	go func() {
		defer stream.FinishSending()
		for _, batch := range batchTexts(chunkText(text, maxTextLen), 3) {
			resp, err := t.client.TextToSpeech(ctx, batch, language, params)
			if err != nil {
				stream.SetError(translateError(err))
				return
			}
			for _, enc := range resp.Audios {
				raw, err := base64.StdEncoding.DecodeString(enc)
				if err != nil {
					stream.SetError(fmt.Errorf("sarvam tts: decode audio: %w", err))
					return
				}
				if !stream.Send(raw) {
					return
				}
			}
		}
	}()

	return stream, nil
}

// resolve merges per-call options over the plugin configuration.
func (t *TTS) resolve(opts tts.SynthesizeOptions) (sarvam.TTSParams, sarvam.LanguageCode) {
	t.mu.Lock()
	cfg := t.opts
	t.mu.Unlock()

	params := sarvam.TTSParams{
		Model:      cfg.Model,
		Speaker:    cfg.Speaker,
		SampleRate: cfg.SampleRate,
		Pitch:      cfg.Pitch,
		Pace:       cfg.Pace,
		Loudness:   cfg.Loudness,
	}
	language := cfg.Language

	if opts.Voice != "" {
		params.Speaker = sarvam.Speaker(opts.Voice)
	}
	if opts.Language != "" {
		language = sarvam.LanguageCode(opts.Language)
	}
	if opts.SampleRate != 0 {
		params.SampleRate = opts.SampleRate
	}
	if opts.Pitch != 0 {
		p := opts.Pitch
		params.Pitch = &p
	}
	if opts.Pace != 0 {
		p := opts.Pace
		params.Pace = &p
	}
	if opts.Loudness != 0 {
		l := opts.Loudness
		params.Loudness = &l
	}
	return params, language
}

// appendWAV concatenates WAV payloads, keeping only the first header.
func appendWAV(acc, chunk []byte) []byte {
	if len(acc) == 0 {
		return append(acc, chunk...)
	}
	if len(chunk) > wavHeaderLen {
		chunk = chunk[wavHeaderLen:]
	}
	return append(acc, chunk...)
}

// chunkText splits text into pieces no longer than limit, preferring
// sentence boundaries and falling back to word boundaries.
func chunkText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range splitSentences(text) {
		if len(sentence) > limit {
			// A single over-long sentence: flush and split on words.
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))
				current.Reset()
			}
			chunks = append(chunks, splitWords(sentence, limit)...)
			continue
		}
		if current.Len()+len(sentence)+1 > limit {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// splitSentences cuts text after sentence-ending punctuation, including
// the danda used in Devanagari scripts.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '।' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitWords splits a run of text on whitespace into pieces no longer
// than limit. Single words longer than limit are cut mid-word.
func splitWords(text string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, word := range strings.FieldsFunc(text, unicode.IsSpace) {
		for len(word) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, word[:limit])
			word = word[limit:]
		}
		if current.Len()+len(word)+1 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// batchTexts groups chunks into batches of at most size entries, the
// API's per-request input cap.
func batchTexts(chunks []string, size int) [][]string {
	var batches [][]string
	for len(chunks) > size {
		batches = append(batches, chunks[:size])
		chunks = chunks[size:]
	}
	if len(chunks) > 0 {
		batches = append(batches, chunks)
	}
	return batches
}
