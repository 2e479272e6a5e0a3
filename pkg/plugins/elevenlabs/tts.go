package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moderatehq/voiceworker/pkg/agent"
	"github.com/moderatehq/voiceworker/pkg/tts"
)

const defaultWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"

// DefaultTTSModel is the low-latency model used for streaming synthesis.
const DefaultTTSModel = "eleven_flash_v2_5"

// VoiceSettings tune the synthesis voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// TTSOptions configure the ElevenLabs text-to-speech plugin.
type TTSOptions struct {
	// APIKey falls back to the ELEVEN_API_KEY environment variable.
	APIKey string
	// VoiceID is the default voice. Required unless every call overrides it.
	VoiceID string
	// Model defaults to eleven_flash_v2_5.
	Model string
	// OutputFormat defaults to pcm_24000.
	OutputFormat  string
	VoiceSettings *VoiceSettings
	// WSBaseURL overrides the websocket endpoint (for tests).
	WSBaseURL string
}

// TTS synthesizes speech over the ElevenLabs stream-input websocket.
type TTS struct {
	apiKey string
	opts   TTSOptions
}

// NewTTS creates the plugin. The API key is taken from opts or the
// ELEVEN_API_KEY environment variable.
func NewTTS(opts TTSOptions) (*TTS, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ELEVEN_API_KEY")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("elevenlabs tts: api key not provided and ELEVEN_API_KEY not set")
	}
	if opts.Model == "" {
		opts.Model = DefaultTTSModel
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = "pcm_24000"
	}
	if opts.WSBaseURL == "" {
		opts.WSBaseURL = defaultWSBase
	}
	return &TTS{apiKey: strings.TrimSpace(apiKey), opts: opts}, nil
}

// Capabilities reports incremental streaming synthesis.
func (t *TTS) Capabilities() tts.Capabilities {
	return tts.Capabilities{Streaming: true}
}

// Synthesize runs a full streaming synthesis and collects the audio.
func (t *TTS) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOptions) (*tts.Synthesis, error) {
	stream, err := t.SynthesizeStream(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var audio []byte
	for chunk := range stream.Chunks() {
		audio = append(audio, chunk...)
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &tts.Synthesis{
		Audio:      audio,
		Format:     "pcm",
		SampleRate: 24000,
		Channels:   1,
	}, nil
}

// SynthesizeStream sends the whole text up front and streams the audio
// back as it is generated.
func (t *TTS) SynthesizeStream(ctx context.Context, text string, opts tts.SynthesizeOptions) (*tts.SynthesisStream, error) {
	sc, err := t.NewStreamingContext(ctx, opts)
	if err != nil {
		return nil, err
	}
	stream := tts.NewSynthesisStream()
	if err := sc.SendText(text, false); err != nil {
		_ = sc.Close()
		return nil, err
	}
	if err := sc.Flush(); err != nil {
		_ = sc.Close()
		return nil, err
	}

	go func() {
		defer stream.FinishSending()
		defer sc.Close()
		for chunk := range sc.Audio() {
			if !stream.Send(chunk) {
				return
			}
		}
		if err := sc.Err(); err != nil && err != context.Canceled {
			stream.SetError(err)
		}
	}()

	return stream, nil
}

// NewStreamingContext opens a stream-input websocket session. Text sent
// through the context is synthesized incrementally; audio chunks arrive
// on the context's Audio channel.
func (t *TTS) NewStreamingContext(ctx context.Context, opts tts.SynthesizeOptions) (*tts.StreamingContext, error) {
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = t.opts.VoiceID
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("elevenlabs tts: voice id is required")
	}

	wsURL, err := buildWSURL(t.opts.WSBaseURL, voiceID, t.opts.Model, t.opts.OutputFormat)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("xi-api-key", t.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, agent.NewConnectionError(err, true)
	}

	sc := tts.NewStreamingContext()
	sessionDone := make(chan struct{})
	var closeOnce sync.Once
	closeConn := func() error {
		var closeErr error
		closeOnce.Do(func() {
			close(sessionDone)
			closeErr = conn.Close()
		})
		return closeErr
	}

	// The initial frame carries the voice settings and keeps the
	// connection from timing out before the first text arrives.
	init := map[string]any{"text": " "}
	if t.opts.VoiceSettings != nil {
		init["voice_settings"] = t.opts.VoiceSettings
	}
	if err := conn.WriteJSON(init); err != nil {
		_ = closeConn()
		return nil, agent.NewConnectionError(err, true)
	}

	sc.SendFunc = func(text string, flush bool) error {
		payload := map[string]any{}
		text = strings.TrimSpace(text)
		if text != "" {
			payload["text"] = text + " "
		} else {
			payload["text"] = ""
		}
		if flush {
			payload["flush"] = true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(payload)
	}
	sc.CloseFunc = closeConn

	go func() {
		defer sc.FinishAudio()
		defer sc.Close()
		for {
			select {
			case <-ctx.Done():
				sc.SetError(ctx.Err())
				return
			case <-sessionDone:
				return
			default:
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-sessionDone:
				default:
					sc.SetError(agent.NewConnectionError(err, false))
				}
				return
			}
			var msg struct {
				Audio   string `json:"audio"`
				IsFinal bool   `json:"isFinal"`
				Error   string `json:"error"`
			}
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Error != "" {
				sc.SetError(fmt.Errorf("elevenlabs tts: %s", msg.Error))
				return
			}
			if msg.Audio != "" {
				audio, err := base64.StdEncoding.DecodeString(msg.Audio)
				if err == nil && len(audio) > 0 {
					if !sc.PushAudio(audio) {
						return
					}
				}
			}
			if msg.IsFinal {
				return
			}
		}
	}()

	return sc, nil
}

func buildWSURL(base, voiceID, model, format string) (string, error) {
	base = strings.ReplaceAll(base, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("elevenlabs tts: invalid ws url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream-input"
	}
	q := u.Query()
	if q.Get("model_id") == "" {
		q.Set("model_id", model)
	}
	if q.Get("output_format") == "" {
		q.Set("output_format", format)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
