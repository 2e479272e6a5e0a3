package sarvam

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	_, err = New("   ")
	require.Error(t, err)

	c, err := New("key")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestTranslateText(t *testing.T) {
	var gotPayload map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/translate", r.URL.Path)
		gotKey = r.Header.Get("api-subscription-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(TranslateResponse{
			RequestID:      "req-1",
			TranslatedText: "नमस्ते",
		})
	}))
	defer srv.Close()

	c, err := New("secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := c.TranslateText(context.Background(), "hello", English, Hindi, TranslateParams{
		Mode:          ModeFormal,
		SpeakerGender: GenderFemale,
	})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "नमस्ते", resp.TranslatedText)
	assert.Equal(t, "hello", gotPayload["input"])
	assert.Equal(t, "en-IN", gotPayload["source_language_code"])
	assert.Equal(t, "hi-IN", gotPayload["target_language_code"])
	assert.Equal(t, "formal", gotPayload["mode"])
	assert.Equal(t, "Female", gotPayload["speaker_gender"])
	assert.NotContains(t, gotPayload, "output_script")
}

func TestTranslateText_InputValidation(t *testing.T) {
	c, err := New("key")
	require.NoError(t, err)

	_, err = c.TranslateText(context.Background(), "", English, Hindi, TranslateParams{})
	assert.ErrorContains(t, err, "input text is required")

	_, err = c.TranslateText(context.Background(), strings.Repeat("x", 1001), English, Hindi, TranslateParams{})
	assert.ErrorContains(t, err, "1000 characters")
}

func TestTextToSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/text-to-speech", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "bulbul:v1", payload["model"])
		assert.Equal(t, "meera", payload["speaker"])
		assert.Equal(t, float64(22050), payload["speech_sample_rate"])
		json.NewEncoder(w).Encode(TTSResponse{RequestID: "req-2", Audios: []string{"QUJD"}})
	}))
	defer srv.Close()

	c, err := New("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := c.TextToSpeech(context.Background(), []string{"hello"}, English, TTSParams{
		Model:      TTSModelBulbulV1,
		Speaker:    SpeakerMeera,
		SampleRate: SampleRateHigh,
	})
	require.NoError(t, err)
	require.Len(t, resp.Audios, 1)
	assert.Equal(t, "QUJD", resp.Audios[0])
}

func TestTextToSpeech_Validation(t *testing.T) {
	c, err := New("key")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.TextToSpeech(ctx, nil, English, TTSParams{})
	assert.ErrorContains(t, err, "at least one input text")

	_, err = c.TextToSpeech(ctx, []string{"a", "b", "c", "d"}, English, TTSParams{})
	assert.ErrorContains(t, err, "maximum 3")

	_, err = c.TextToSpeech(ctx, []string{strings.Repeat("x", 501)}, English, TTSParams{})
	assert.ErrorContains(t, err, "500 characters")

	bad := 0.9
	_, err = c.TextToSpeech(ctx, []string{"ok"}, English, TTSParams{Pitch: &bad})
	assert.ErrorContains(t, err, "pitch")

	pace := 3.0
	_, err = c.TextToSpeech(ctx, []string{"ok"}, English, TTSParams{Pace: &pace})
	assert.ErrorContains(t, err, "pace")
}

func TestSpeechToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/speech-to-text", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "saarika:v2", r.FormValue("model"))
		assert.Equal(t, "true", r.FormValue("with_timestamps"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.wav", header.Filename)

		json.NewEncoder(w).Encode(STTResponse{
			RequestID:    "req-3",
			Transcript:   "hello world",
			LanguageCode: "en-IN",
		})
	}))
	defer srv.Close()

	c, err := New("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	withTS := true
	resp, err := c.SpeechToText(context.Background(), "", strings.NewReader("RIFFdata"), STTParams{
		Model:          STTModelSaarikaV2,
		WithTimestamps: &withTS,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Transcript)
	assert.Equal(t, "en-IN", resp.LanguageCode)
}

func TestSpeechToText_SaarikaV1RequiresLanguage(t *testing.T) {
	c, err := New("key")
	require.NoError(t, err)

	_, err = c.SpeechToText(context.Background(), "a.wav", strings.NewReader("x"), STTParams{
		Model: STTModelSaarikaV1,
	})
	assert.ErrorContains(t, err, "language_code is required")

	_, err = c.SpeechToText(context.Background(), "a.wav", strings.NewReader("x"), STTParams{
		Model:        STTModelSaarikaV1,
		LanguageCode: Unknown,
	})
	assert.Error(t, err)
}

func TestClient_ErrorBodySurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "invalid subscription key"}`))
	}))
	defer srv.Close()

	c, err := New("bad", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.TranslateText(context.Background(), "hi", English, Hindi, TranslateParams{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "403")
	assert.ErrorContains(t, err, "invalid subscription key")
}
