// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/assessment-engine/internal/logger"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

var defaultModels = map[types.ModelProvider]string{
	types.ProviderClaude: "claude-sonnet-4-5-20250929",
	types.ProviderGemini: "gemini-2.5-flash",
	types.ProviderVertex: "gemini-2.5-flash",
	types.ProviderOpenAI: "gpt-4o-mini",
}

// DefaultModel returns the model used when the config names none.
func DefaultModel(p types.ModelProvider) string {
	return defaultModels[p]
}

// NewBackend builds the backend selected by cfg.Provider.
func NewBackend(ctx context.Context, cfg types.ModelConfig, log *logger.Logger) (Backend, error) {
	name := cfg.Model
	if name == "" {
		name = DefaultModel(cfg.Provider)
	}

	switch cfg.Provider {
	case types.ProviderClaude, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude: API key is required (.secrets/anthropic-api-key or ANTHROPIC_API_KEY)")
		}
		if name == "" {
			name = DefaultModel(types.ProviderClaude)
		}
		return &ClaudeBackend{
			APIKey:     cfg.APIKey,
			Model:      name,
			MaxTokens:  cfg.MaxTokens,
			MaxRetries: cfg.MaxRetries,
			Log:        log,
		}, nil
	case types.ProviderGemini:
		return NewGeminiBackend(ctx, cfg.APIKey, name, cfg.MaxTokens)
	case types.ProviderVertex:
		return NewVertexBackend(ctx, cfg.Project, cfg.Region, name, cfg.MaxTokens)
	case types.ProviderOpenAI:
		return NewOpenAIBackend(cfg.APIKey, cfg.BaseURL, name, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown model provider %q: use claude, gemini, vertex, or openai", cfg.Provider)
	}
}

// CloseBackend releases backend resources when the backend holds any.
func CloseBackend(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
