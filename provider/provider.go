package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/provider/gemini"
	"github.com/mohammad-safakhou/researcher/provider/llm"
	openai_provider "github.com/mohammad-safakhou/researcher/provider/openai"
)

// Client names a generation backend
type Client string

const (
	Gemini Client = "gemini"
	OpenAI Client = "openai"
)

// ErrMissingCredentials is returned when the selected backend has no key.
var ErrMissingCredentials = errors.New("missing generation credentials")

// CredentialHint names the variables that satisfy the selected backend.
func CredentialHint(client Client) string {
	switch client {
	case OpenAI:
		return "set OPENAI_API_KEY (or RESEARCH_LLM_API_KEY)"
	default:
		return "set GOOGLE_API_KEY or GEMINI_API_KEY (or RESEARCH_LLM_API_KEY)"
	}
}

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (llm.Generator, error) {
	client := Client(strings.ToLower(cfg.Provider))
	if client == "" {
		client = Gemini
	}
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%w for %s: %s", ErrMissingCredentials, client, CredentialHint(client))
	}

	switch client {
	case Gemini:
		gen, err := gemini.New(ctx, gemini.Options{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.Timeout,
			MaxToolTurns: cfg.MaxToolTurns,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}, logger)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case OpenAI:
		gen, err := openai_provider.NewOpenAIClient(openai_provider.Options{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.Timeout,
			MaxToolTurns: cfg.MaxToolTurns,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}, logger)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
