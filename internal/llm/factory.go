package llm

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/config"
)

// New builds the configured generator, wrapped in the process-wide rate
// limiter. A missing API key or provider "none" yields Disabled.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (audit.Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Provider == "none" || cfg.APIKey == "" {
		logger.Warn("llm disabled; all agents will use fallback results", zap.String("provider", cfg.Provider))
		return Disabled{}, nil
	}

	var gen audit.Generator
	switch cfg.Provider {
	case "openai", "":
		gen = NewOpenAIClient(OpenAIConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
		}, http.DefaultClient, logger)
	case "gemini":
		client, err := NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
		if err != nil {
			return nil, err
		}
		gen = client
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	logger.Info("llm configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
	)
	return NewLimited(gen, cfg.RequestsPerSecond, cfg.Burst), nil
}
