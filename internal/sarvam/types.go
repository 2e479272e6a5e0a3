package sarvam

import "encoding/json"

// LanguageCode is a language supported by the Sarvam TTS/STT/translation APIs.
type LanguageCode string

const (
	Hindi     LanguageCode = "hi-IN"
	Bengali   LanguageCode = "bn-IN"
	Kannada   LanguageCode = "kn-IN"
	Malayalam LanguageCode = "ml-IN"
	Marathi   LanguageCode = "mr-IN"
	Odia      LanguageCode = "od-IN"
	Punjabi   LanguageCode = "pa-IN"
	Tamil     LanguageCode = "ta-IN"
	Telugu    LanguageCode = "te-IN"
	English   LanguageCode = "en-IN"
	Gujarati  LanguageCode = "gu-IN"
	// Unknown asks the STT API to auto-detect the language.
	Unknown LanguageCode = "unknown"
)

// Languages returns the languages supported by both TTS and STT.
func Languages() []LanguageCode {
	return []LanguageCode{
		Hindi, Bengali, Kannada, Malayalam, Marathi, Odia,
		Punjabi, Tamil, Telugu, English, Gujarati,
	}
}

// Speaker is a TTS voice.
type Speaker string

const (
	SpeakerMeera    Speaker = "meera"
	SpeakerPavithra Speaker = "pavithra"
	SpeakerMaitreyi Speaker = "maitreyi"
	SpeakerArvind   Speaker = "arvind"
	SpeakerAmol     Speaker = "amol"
	SpeakerAmartya  Speaker = "amartya"
	SpeakerDiya     Speaker = "diya"
	SpeakerNeel     Speaker = "neel"
	SpeakerMisha    Speaker = "misha"
	SpeakerVian     Speaker = "vian"
	SpeakerArjun    Speaker = "arjun"
	SpeakerMaya     Speaker = "maya"
)

// TTSModel selects the text-to-speech model.
type TTSModel string

const TTSModelBulbulV1 TTSModel = "bulbul:v1"

// STTModel selects the speech-to-text model.
type STTModel string

const (
	STTModelSaarikaV1    STTModel = "saarika:v1"
	STTModelSaarikaV2    STTModel = "saarika:v2"
	STTModelSaarikaFlash STTModel = "saarika:flash"
)

// Supported TTS output sample rates in Hz.
const (
	SampleRateLow    = 8000
	SampleRateMedium = 16000
	SampleRateHigh   = 22050
)

// TranslationMode selects the register of translated output.
type TranslationMode string

const (
	ModeFormal            TranslationMode = "formal"
	ModeModernColloquial  TranslationMode = "modern-colloquial"
	ModeClassicColloquial TranslationMode = "classic-colloquial"
	ModeCodeMixed         TranslationMode = "code-mixed"
)

// SpeakerGender hints the speaker's gender for translation quality.
type SpeakerGender string

const (
	GenderMale   SpeakerGender = "Male"
	GenderFemale SpeakerGender = "Female"
)

// OutputScript controls transliteration of translated output.
type OutputScript string

const (
	ScriptRoman              OutputScript = "roman"
	ScriptFullyNative        OutputScript = "fully-native"
	ScriptSpokenFormInNative OutputScript = "spoken-form-in-native"
)

// NumeralsFormat controls numeral rendering in translated output.
type NumeralsFormat string

const (
	NumeralsInternational NumeralsFormat = "international"
	NumeralsNative        NumeralsFormat = "native"
)

// TranslateResponse is the /translate response body.
type TranslateResponse struct {
	RequestID      string `json:"request_id"`
	TranslatedText string `json:"translated_text"`
}

// TTSResponse is the /text-to-speech response body. Audios are
// base64-encoded WAV payloads, one per input text.
type TTSResponse struct {
	RequestID string   `json:"request_id"`
	Audios    []string `json:"audios"`
}

// STTResponse is the /speech-to-text response body.
type STTResponse struct {
	RequestID           string          `json:"request_id"`
	Transcript          string          `json:"transcript"`
	LanguageCode        string          `json:"language_code,omitempty"`
	Timestamps          *STTTimestamps  `json:"timestamps,omitempty"`
	DiarizedTranscript  json.RawMessage `json:"diarized_transcript,omitempty"`
}

// STTTimestamps carries word-level timing parallel arrays.
type STTTimestamps struct {
	Words            []string  `json:"words"`
	StartTimeSeconds []float64 `json:"start_time_seconds"`
	EndTimeSeconds   []float64 `json:"end_time_seconds"`
}
