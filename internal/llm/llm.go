// Package llm provides audit.Generator implementations for the external
// text-generation capability: an OpenAI-compatible chat endpoint (Mistral by
// default), Google Gemini through the genai SDK, and a disabled generator used
// when no credentials are configured.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/metrics"
)

// ErrDisabled is returned by the disabled generator.
var ErrDisabled = errors.New("text generation disabled: no API key configured")

// ErrEmptyResponse is returned when the provider answers without any content.
var ErrEmptyResponse = errors.New("text generation returned no content")

// StatusError reports a non-200 answer from an HTTP provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Disabled always fails so every agent falls back.
type Disabled struct{}

// Generate implements audit.Generator.
func (Disabled) Generate(context.Context, audit.GenerationRequest) (string, error) {
	return "", ErrDisabled
}

// Limited throttles an underlying generator with a token bucket shared by
// all agents of the process.
type Limited struct {
	next    audit.Generator
	limiter *rate.Limiter
}

// NewLimited wraps next. A non-positive rps disables throttling.
func NewLimited(next audit.Generator, rps float64, burst int) audit.Generator {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Generate implements audit.Generator.
func (l *Limited) Generate(ctx context.Context, request audit.GenerationRequest) (string, error) {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit wait: %w", err)
	}
	metrics.ObserveRateLimitDelay(time.Since(start))
	return l.next.Generate(ctx, request)
}
