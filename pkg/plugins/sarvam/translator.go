package sarvam

import (
	"context"
	"fmt"
	"os"

	"github.com/moderatehq/voiceworker/internal/sarvam"
)

// TranslatorOptions configure the Sarvam translation plugin.
type TranslatorOptions struct {
	// APIKey falls back to the SARVAM_API_KEY environment variable.
	APIKey string
	// Source defaults to auto-detection when left empty.
	Source sarvam.LanguageCode
	// Target defaults to en-IN.
	Target sarvam.LanguageCode
	// Mode selects the translation register.
	Mode sarvam.TranslationMode
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Translator translates text between supported languages.
type Translator struct {
	client *sarvam.Client
	opts   TranslatorOptions
}

// NewTranslator creates the plugin. The API key is taken from opts or
// the SARVAM_API_KEY environment variable.
func NewTranslator(opts TranslatorOptions) (*Translator, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("SARVAM_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("sarvam translator: api key not provided and SARVAM_API_KEY not set")
	}

	var clientOpts []sarvam.Option
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, sarvam.WithBaseURL(opts.BaseURL))
	}
	client, err := sarvam.New(apiKey, clientOpts...)
	if err != nil {
		return nil, err
	}

	if opts.Source == "" {
		opts.Source = sarvam.Unknown
	}
	if opts.Target == "" {
		opts.Target = sarvam.English
	}
	return &Translator{client: client, opts: opts}, nil
}

// Translate converts text to the configured target language.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	resp, err := t.client.TranslateText(ctx, text, t.opts.Source, t.opts.Target, sarvam.TranslateParams{
		Mode: t.opts.Mode,
	})
	if err != nil {
		return "", translateError(err)
	}
	return resp.TranslatedText, nil
}
