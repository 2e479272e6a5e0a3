// Package portkey is an LLM plugin for OpenAI-compatible chat completion
// APIs fronted by the Portkey gateway. It streams responses over SSE and
// reassembles tool calls whose arguments arrive fragmented across chunks.
package portkey

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/moderatehq/voiceworker/pkg/llm"
)

// DefaultBaseURL is the hosted Portkey gateway endpoint.
const DefaultBaseURL = "https://api.portkey.ai/v1"

// Options configure the Portkey LLM plugin.
type Options struct {
	// APIKey falls back to the PORTKEY_API_KEY environment variable.
	APIKey string
	// Model defaults to gpt-4o.
	Model ChatModel
	// VirtualKey selects a provider credential stored in the gateway.
	VirtualKey string
	// Config is a gateway config slug or inline JSON config.
	Config string
	// Provider pins a provider instead of relying on Config routing.
	Provider string
	// TraceID groups the worker's requests in gateway analytics.
	TraceID string
	// Metadata is attached to every request for gateway analytics.
	Metadata map[string]string
	// Temperature is the default sampling temperature.
	Temperature *float64
	// MaxCompletionTokens caps the response length when non-zero.
	MaxCompletionTokens int
	// BaseURL overrides the gateway endpoint (for tests or self-hosted
	// gateways).
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// LLM is the Portkey chat-completion plugin.
type LLM struct {
	opts       Options
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates the plugin. The API key is taken from opts or the
// PORTKEY_API_KEY environment variable.
func New(opts Options) (*LLM, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("PORTKEY_API_KEY")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("portkey: api key not provided and PORTKEY_API_KEY not set")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{
		opts:       opts,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (l *LLM) Model() ChatModel {
	return l.opts.Model
}

// Chat opens a streaming completion. The returned stream yields
// normalized chunks: content updates as they arrive, tool calls once
// fully reassembled, and a usage report at the end of the response.
func (l *LLM) Chat(ctx context.Context, chatCtx *llm.ChatContext, params llm.ChatParams) (llm.ChatStream, error) {
	req := l.buildRequest(chatCtx, params)
	body, err := l.doStreamRequest(ctx, req, params.ConnectOptions)
	if err != nil {
		return nil, err
	}
	return newChatStream(body, l.logger), nil
}
