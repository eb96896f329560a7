// Package orchestrator runs one audit end to end: validate, record,
// extract, fan out to the analysis panel, aggregate, and finalize.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/website-audit/internal/agent"
	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/config"
	"github.com/JakeFAU/website-audit/internal/metrics"
)

var (
	// ErrInvalidRequest marks caller input errors (HTTP 400).
	ErrInvalidRequest = errors.New("invalid audit request")
	// ErrPersistence marks a failure to create the audit record (HTTP 500).
	ErrPersistence = errors.New("audit persistence failed")
)

const defaultFinalizeTimeout = 5 * time.Second

// AgentRunner runs one task and never fails.
type AgentRunner interface {
	Run(ctx context.Context, task agent.Task, input string) audit.AgentOutcome
}

// Deps are the collaborators of an Orchestrator. Archive and Publisher are optional.
type Deps struct {
	Store     audit.RecordStore
	Extractor audit.Extractor
	Runner    AgentRunner
	IDs       audit.IDGenerator
	Clock     audit.Clock
	Archive   audit.BlobStore
	Publisher audit.Publisher
}

// Config holds the injected panel and aggregation policy.
type Config struct {
	Panel           []agent.Task
	ScoringMode     string
	FinalizeTimeout time.Duration
	ArchivePrefix   string
	EventsTopic     string
}

// Result is what RunAudit hands back to the caller.
type Result struct {
	ID     string
	Status audit.Status
	Report audit.Report
}

// Orchestrator coordinates a single audit request.
type Orchestrator struct {
	deps    Deps
	cfg     Config
	weights map[audit.TaskName]float64
	logger  *zap.Logger
}

// New validates dependencies and applies defaults.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("orchestrator: record store is required")
	case deps.Extractor == nil:
		return nil, errors.New("orchestrator: extractor is required")
	case deps.Runner == nil:
		return nil, errors.New("orchestrator: agent runner is required")
	case deps.IDs == nil:
		return nil, errors.New("orchestrator: id generator is required")
	case deps.Clock == nil:
		return nil, errors.New("orchestrator: clock is required")
	}
	if len(cfg.Panel) == 0 {
		cfg.Panel = agent.DefaultPanel()
	}
	if cfg.ScoringMode == "" {
		cfg.ScoringMode = config.ScoringMean
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = defaultFinalizeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		weights: agent.Weights(cfg.Panel),
		logger:  logger,
	}, nil
}

// RunAudit executes the pipeline. Only ErrInvalidRequest and ErrPersistence
// (record creation) are returned; every later failure degrades the report.
func (o *Orchestrator) RunAudit(ctx context.Context, req audit.Request) (Result, error) {
	websiteURL, err := NormalizeURL(req.WebsiteURL)
	if err != nil {
		metrics.ObserveAudit("rejected")
		return Result{}, err
	}

	id, err := o.deps.IDs.NewID()
	if err != nil {
		metrics.ObserveAudit("failed")
		return Result{}, fmt.Errorf("%w: generate id: %w", ErrPersistence, err)
	}
	now := o.deps.Clock.Now()
	record := audit.Record{
		ID:         id,
		WebsiteURL: req.WebsiteURL,
		SocialURL:  req.SocialURL,
		Email:      req.Email,
		Status:     audit.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.deps.Store.CreateRecord(ctx, record); err != nil {
		o.logger.Error("create audit record failed", zap.String("audit_id", id), zap.Error(err))
		metrics.ObserveAudit("failed")
		return Result{}, fmt.Errorf("%w: create record: %w", ErrPersistence, err)
	}
	logger := o.logger.With(zap.String("audit_id", id), zap.String("website_url", websiteURL))
	logger.Info("audit started")

	page := o.deps.Extractor.Extract(ctx, websiteURL)
	outcomes := o.runPanel(ctx, page, req.SocialURL)

	report := o.buildReport(websiteURL, req.SocialURL, page, outcomes)
	o.finalize(ctx, logger, id, report)

	metrics.ObserveAudit(string(audit.StatusCompleted))
	metrics.ObserveScore(report.OverallScore)
	logger.Info("audit completed",
		zap.Int("overall_score", report.OverallScore),
		zap.Int("fallbacks", countFallbacks(outcomes)),
		zap.Bool("page_degraded", page.Degraded()),
	)
	return Result{ID: id, Status: audit.StatusCompleted, Report: report}, nil
}

// runPanel runs every task concurrently and joins all of them. Outcomes
// keep panel order regardless of completion order.
func (o *Orchestrator) runPanel(ctx context.Context, page audit.ExtractedPage, socialURL string) []audit.AgentOutcome {
	outcomes := make([]audit.AgentOutcome, len(o.cfg.Panel))
	var g errgroup.Group
	for i, task := range o.cfg.Panel {
		input := BuildInput(task, page, socialURL)
		g.Go(func() error {
			outcomes[i] = o.deps.Runner.Run(ctx, task, input)
			outcomes[i].Task = task.Name
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) buildReport(
	websiteURL, socialURL string,
	page audit.ExtractedPage,
	outcomes []audit.AgentOutcome,
) audit.Report {
	results := make(map[audit.TaskName]audit.AgentResult, len(outcomes))
	sources := make(map[audit.TaskName]audit.Source, len(outcomes))
	for _, out := range outcomes {
		results[out.Task] = out.Result
		sources[out.Task] = out.Source
	}
	return audit.Report{
		WebsiteURL:         websiteURL,
		SocialURL:          socialURL,
		OverallScore:       Score(outcomes, o.weights, o.cfg.ScoringMode),
		ScoringMode:        o.cfg.ScoringMode,
		Agents:             results,
		AgentSources:       sources,
		TopRecommendations: TopRecommendations(results),
		ExtractedPage:      page,
		Timestamp:          o.deps.Clock.Now(),
	}
}

// finalize writes the completed record, then archives and announces the
// report. It runs detached from the request's cancellation under its own
// timeout; every failure here is logged and swallowed.
func (o *Orchestrator) finalize(ctx context.Context, logger *zap.Logger, id string, report audit.Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.FinalizeTimeout)
	defer cancel()

	persisted := true
	update := audit.RecordUpdate{
		Status:       audit.StatusCompleted,
		OverallScore: report.OverallScore,
		Results:      report,
		UpdatedAt:    o.deps.Clock.Now(),
	}
	if err := o.deps.Store.UpdateRecord(ctx, id, update); err != nil {
		persisted = false
		logger.Error("update audit record failed; returning computed report", zap.Error(err))
	}

	reportURI := o.archive(ctx, logger, id, report)
	o.publish(ctx, logger, audit.CompletedEvent{
		AuditID:      id,
		WebsiteURL:   report.WebsiteURL,
		OverallScore: report.OverallScore,
		ReportURI:    reportURI,
		Persisted:    persisted,
		CompletedAt:  report.Timestamp,
	})
}

func (o *Orchestrator) archive(ctx context.Context, logger *zap.Logger, id string, report audit.Report) string {
	if o.deps.Archive == nil {
		return ""
	}
	payload, err := json.Marshal(report)
	if err != nil {
		logger.Warn("encode report for archive failed", zap.Error(err))
		return ""
	}
	uri, err := o.deps.Archive.PutObject(ctx, path.Join(o.cfg.ArchivePrefix, id+".json"), "application/json", bytes.NewReader(payload))
	if err != nil {
		logger.Warn("archive report failed", zap.Error(err))
		return ""
	}
	return uri
}

func (o *Orchestrator) publish(ctx context.Context, logger *zap.Logger, event audit.CompletedEvent) {
	if o.deps.Publisher == nil {
		return
	}
	msgID, err := o.deps.Publisher.Publish(ctx, o.cfg.EventsTopic, event)
	if err != nil {
		logger.Warn("publish completion event failed", zap.Error(err))
		return
	}
	logger.Debug("completion event published", zap.String("message_id", msgID))
}

func countFallbacks(outcomes []audit.AgentOutcome) int {
	n := 0
	for _, out := range outcomes {
		if !out.Genuine() {
			n++
		}
	}
	return n
}
