package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/dave"
	"github.com/fwojciec/dave/gemini"
	"github.com/fwojciec/dave/openai"
	"go.uber.org/zap"
)

// backend is a hosted assistant with its file service and moderator.
type backend interface {
	dave.RunService
	dave.FileService
	dave.Moderator
}

var (
	_ backend = (*openai.Client)(nil)
	_ backend = (*gemini.Client)(nil)
)

// resolveProvider selects the provider and its API key. An explicit key
// overrides the provider's env var. All env values are passed in as
// parameters.
func resolveProvider(provider, apiKey, openaiEnvKey, geminiEnvKey string) (name, key string, err error) {
	if provider == "" {
		hasOpenAI := openaiEnvKey != ""
		hasGemini := geminiEnvKey != ""
		switch {
		case hasOpenAI && hasGemini:
			return "", "", fmt.Errorf("multiple API keys found (OPENAI_API_KEY, GEMINI_API_KEY): use --provider to select")
		case hasOpenAI:
			provider = dave.ProviderOpenAI
		case hasGemini:
			provider = dave.ProviderGemini
		default:
			return "", "", fmt.Errorf("no API key found: set OPENAI_API_KEY or GEMINI_API_KEY (or use --provider and --api-key)")
		}
	}

	key = apiKey
	switch provider {
	case dave.ProviderOpenAI:
		if key == "" {
			key = openaiEnvKey
		}
		if key == "" {
			return "", "", fmt.Errorf("OPENAI_API_KEY not set (use --api-key or the environment variable)")
		}
	case dave.ProviderGemini:
		if key == "" {
			key = geminiEnvKey
		}
		if key == "" {
			return "", "", fmt.Errorf("GEMINI_API_KEY not set (use --api-key or the environment variable)")
		}
	default:
		return "", "", fmt.Errorf("unknown provider %q: must be %q or %q", provider, dave.ProviderOpenAI, dave.ProviderGemini)
	}
	return provider, key, nil
}

// newBackend constructs the client for the resolved provider.
func newBackend(ctx context.Context, cfg dave.Config, logger *zap.Logger) (backend, error) {
	switch cfg.Provider {
	case dave.ProviderOpenAI:
		return openai.New(cfg.APIKey, openai.WithAssistantID(cfg.AssistantID)), nil
	case dave.ProviderGemini:
		opts := []gemini.Option{gemini.WithLogger(logger)}
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		if cfg.Instructions != "" {
			opts = append(opts, gemini.WithInstructions(cfg.Instructions))
		}
		client, err := gemini.New(ctx, cfg.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", cfg.Provider, dave.ErrValidation)
	}
}
