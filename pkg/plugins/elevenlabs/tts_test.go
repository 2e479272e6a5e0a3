package elevenlabs

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moderatehq/voiceworker/pkg/tts"
)

// fakeStreamInput serves the stream-input websocket protocol: it reads
// the init frame plus any text frames, then answers with audio chunks
// and a final marker once it sees a flush.
func fakeStreamInput(t *testing.T, chunks [][]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("xi-api-key"))
		assert.Equal(t, "eleven_flash_v2_5", r.URL.Query().Get("model_id"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			flush, _ := msg["flush"].(bool)
			if !flush {
				continue
			}
			for _, chunk := range chunks {
				_ = conn.WriteJSON(map[string]any{
					"audio": base64.StdEncoding.EncodeToString(chunk),
				})
			}
			_ = conn.WriteJSON(map[string]any{"isFinal": true})
			_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
}

func wsBase(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/text-to-speech/{voice_id}/stream-input"
}

func TestTTS_SynthesizeStream(t *testing.T) {
	srv := fakeStreamInput(t, [][]byte{{0x01, 0x02}, {0x03, 0x04}})
	defer srv.Close()

	tt, err := NewTTS(TTSOptions{APIKey: "key", VoiceID: "voice_1", WSBaseURL: wsBase(srv)})
	require.NoError(t, err)
	assert.True(t, tt.Capabilities().Streaming)

	stream, err := tt.SynthesizeStream(context.Background(), "hello", tts.SynthesizeOptions{})
	require.NoError(t, err)

	var audio []byte
	for chunk := range stream.Chunks() {
		audio = append(audio, chunk...)
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, audio)
}

func TestTTS_Synthesize(t *testing.T) {
	srv := fakeStreamInput(t, [][]byte{{0xAA}, {0xBB}})
	defer srv.Close()

	tt, err := NewTTS(TTSOptions{APIKey: "key", VoiceID: "voice_1", WSBaseURL: wsBase(srv)})
	require.NoError(t, err)

	syn, err := tt.Synthesize(context.Background(), "hello", tts.SynthesizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, syn.Audio)
	assert.Equal(t, "pcm", syn.Format)
	assert.Equal(t, 24000, syn.SampleRate)
}

func TestTTS_RequiresVoice(t *testing.T) {
	tt, err := NewTTS(TTSOptions{APIKey: "key"})
	require.NoError(t, err)

	_, err = tt.NewStreamingContext(context.Background(), tts.SynthesizeOptions{})
	assert.ErrorContains(t, err, "voice id is required")
}

func TestNewTTS_RequiresAPIKey(t *testing.T) {
	t.Setenv("ELEVEN_API_KEY", "")
	_, err := NewTTS(TTSOptions{})
	require.Error(t, err)
}

func TestBuildWSURL(t *testing.T) {
	got, err := buildWSURL(defaultWSBase, "voice one", "eleven_flash_v2_5", "pcm_24000")
	require.NoError(t, err)
	assert.Contains(t, got, "/v1/text-to-speech/voice%20one/stream-input")
	assert.Contains(t, got, "model_id=eleven_flash_v2_5")
	assert.Contains(t, got, "output_format=pcm_24000")

	// Query params already present win.
	got, err = buildWSURL("wss://example.com/custom?model_id=eleven_turbo_v2", "v1", "eleven_flash_v2_5", "pcm_24000")
	require.NoError(t, err)
	assert.Contains(t, got, "model_id=eleven_turbo_v2")
	assert.NotContains(t, got, "eleven_flash_v2_5")
}
