// Package config loads worker configuration from the environment, with
// optional .env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Room service.
	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	LiveKitTrunkID   string

	// Provider API keys.
	OpenAIAPIKey   string
	ElevenAPIKey   string
	DeepgramAPIKey string
	PortkeyAPIKey  string
	SarvamAPIKey   string

	// Database service.
	DBServiceURL     string
	DBServiceTimeout time.Duration

	// AWS.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string

	// Slack.
	SlackToken     string
	SlackChannelID string

	// Logging and persistence.
	LogLevel      string
	LogDir        string
	TranscriptDir string
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		LiveKitURL:         os.Getenv("LIVEKIT_URL"),
		LiveKitAPIKey:      os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret:   os.Getenv("LIVEKIT_API_SECRET"),
		LiveKitTrunkID:     os.Getenv("LIVEKIT_TRUNK_ID"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		ElevenAPIKey:       envOr("ELEVEN_API_KEY", os.Getenv("ELEVENLABS_API_KEY")),
		DeepgramAPIKey:     os.Getenv("DEEPGRAM_API_KEY"),
		PortkeyAPIKey:      os.Getenv("PORTKEY_API_KEY"),
		SarvamAPIKey:       os.Getenv("SARVAM_API_KEY"),
		DBServiceURL:       os.Getenv("DB_SERVICE_URL"),
		DBServiceTimeout:   envDurationOr("DB_SERVICE_TIMEOUT", 60*time.Second),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		SlackToken:         os.Getenv("SLACK_TOKEN"),
		SlackChannelID:     os.Getenv("SLACK_CHANNEL_ID"),
		LogLevel:           envOr("LOG_LEVEL", "INFO"),
		LogDir:             envOr("LOG_DIR", "logs"),
		TranscriptDir:      envOr("TRANSCRIPT_DIR", "transcripts"),
	}

	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return Config{}, fmt.Errorf("LOG_LEVEL must be one of DEBUG|INFO|WARN|ERROR, got %q", cfg.LogLevel)
	}
	if cfg.DBServiceTimeout <= 0 {
		return Config{}, fmt.Errorf("DB_SERVICE_TIMEOUT must be > 0")
	}

	return cfg, nil
}

// Require reports the named settings that are unset, so each component
// can validate only the keys it actually uses.
func (c Config) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if c.value(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) value(name string) string {
	switch name {
	case "LIVEKIT_URL":
		return c.LiveKitURL
	case "LIVEKIT_API_KEY":
		return c.LiveKitAPIKey
	case "LIVEKIT_API_SECRET":
		return c.LiveKitAPISecret
	case "LIVEKIT_TRUNK_ID":
		return c.LiveKitTrunkID
	case "OPENAI_API_KEY":
		return c.OpenAIAPIKey
	case "ELEVEN_API_KEY":
		return c.ElevenAPIKey
	case "DEEPGRAM_API_KEY":
		return c.DeepgramAPIKey
	case "PORTKEY_API_KEY":
		return c.PortkeyAPIKey
	case "SARVAM_API_KEY":
		return c.SarvamAPIKey
	case "DB_SERVICE_URL":
		return c.DBServiceURL
	case "AWS_ACCESS_KEY_ID":
		return c.AWSAccessKeyID
	case "AWS_SECRET_ACCESS_KEY":
		return c.AWSSecretAccessKey
	case "AWS_REGION":
		return c.AWSRegion
	case "SLACK_TOKEN":
		return c.SlackToken
	case "SLACK_CHANNEL_ID":
		return c.SlackChannelID
	default:
		return ""
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
