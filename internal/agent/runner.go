package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/metrics"
)

// Reasons recorded on fallback outcomes.
const (
	ReasonTimeout   = "timeout"
	ReasonCanceled  = "canceled"
	ReasonUpstream  = "upstream_error"
	ReasonMalformed = "malformed"
)

// Config tunes every agent call.
type Config struct {
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// DefaultConfig favors determinism and short answers.
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second, Temperature: 0.2, MaxTokens: 500}
}

// Runner executes tasks against a Generator.
type Runner struct {
	gen    audit.Generator
	cfg    Config
	logger *zap.Logger
}

// NewRunner builds a Runner; zero config fields take defaults.
func NewRunner(gen audit.Generator, cfg Config, logger *zap.Logger) *Runner {
	d := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{gen: gen, cfg: cfg, logger: logger}
}

type reply struct {
	text string
	err  error
}

// Run never fails: the returned outcome always carries a valid result, and
// it returns within the configured timeout even if the generator hangs.
func (r *Runner) Run(ctx context.Context, task Task, input string) audit.AgentOutcome {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	request := audit.GenerationRequest{
		SystemPrompt: task.Prompt,
		UserPrompt:   input,
		Temperature:  r.cfg.Temperature,
		MaxTokens:    r.cfg.MaxTokens,
	}
	done := make(chan reply, 1)
	go func() {
		text, err := r.gen.Generate(callCtx, request)
		done <- reply{text: text, err: err}
	}()

	var outcome audit.AgentOutcome
	select {
	case <-callCtx.Done():
		outcome = fallbackOutcome(task.Name, contextReason(callCtx.Err()), Fallback(task.Name))
	case rep := <-done:
		outcome = r.interpret(task.Name, rep)
	}
	outcome.Duration = time.Since(start)

	metrics.ObserveAgent(string(task.Name), string(outcome.Source), outcome.Duration)
	if outcome.Genuine() {
		r.logger.Debug("agent completed",
			zap.String("task", string(task.Name)),
			zap.Int("score", outcome.Result.Score),
			zap.Duration("duration", outcome.Duration),
		)
	} else {
		r.logger.Warn("agent fell back to canned result",
			zap.String("task", string(task.Name)),
			zap.String("reason", outcome.Reason),
			zap.Duration("duration", outcome.Duration),
		)
	}
	return outcome
}

func (r *Runner) interpret(name audit.TaskName, rep reply) audit.AgentOutcome {
	if rep.err != nil {
		reason := ReasonUpstream
		if errors.Is(rep.err, context.DeadlineExceeded) || errors.Is(rep.err, context.Canceled) {
			reason = contextReason(rep.err)
		}
		r.logger.Debug("agent generation failed", zap.String("task", string(name)), zap.Error(rep.err))
		return fallbackOutcome(name, reason, Fallback(name))
	}
	result, err := ParseResult(rep.text)
	if err != nil {
		r.logger.Debug("agent output rejected", zap.String("task", string(name)), zap.Error(err))
		return fallbackOutcome(name, ReasonMalformed, FallbackWithExcerpt(name, rep.text))
	}
	return audit.AgentOutcome{Task: name, Result: result, Source: audit.SourceModel}
}

func fallbackOutcome(name audit.TaskName, reason string, result audit.AgentResult) audit.AgentOutcome {
	return audit.AgentOutcome{Task: name, Result: result, Source: audit.SourceFallback, Reason: reason}
}

func contextReason(err error) string {
	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	return ReasonTimeout
}
