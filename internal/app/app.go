// Package app builds the audit service's long-lived services from
// configuration, acting as a dependency injection container for the HTTP
// server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/agent"
	"github.com/JakeFAU/website-audit/internal/api"
	"github.com/JakeFAU/website-audit/internal/audit"
	memorycache "github.com/JakeFAU/website-audit/internal/cache/memory"
	rediscache "github.com/JakeFAU/website-audit/internal/cache/redis"
	"github.com/JakeFAU/website-audit/internal/clock/system"
	"github.com/JakeFAU/website-audit/internal/config"
	"github.com/JakeFAU/website-audit/internal/extract"
	"github.com/JakeFAU/website-audit/internal/fetcher"
	collyfetcher "github.com/JakeFAU/website-audit/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/website-audit/internal/fetcher/headless"
	"github.com/JakeFAU/website-audit/internal/hash/sha256"
	"github.com/JakeFAU/website-audit/internal/headless/detector"
	"github.com/JakeFAU/website-audit/internal/id/uuid"
	"github.com/JakeFAU/website-audit/internal/llm"
	"github.com/JakeFAU/website-audit/internal/orchestrator"
	memorypublisher "github.com/JakeFAU/website-audit/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/website-audit/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/website-audit/internal/storage/gcs"
	localstorage "github.com/JakeFAU/website-audit/internal/storage/local"
	memorystorage "github.com/JakeFAU/website-audit/internal/storage/memory"
	pgstore "github.com/JakeFAU/website-audit/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/website-audit/internal/storage/sqlite"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

// App holds all the shared, long-lived services for the application.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	store        audit.RecordStore
	orchestrator *orchestrator.Orchestrator
	closers      []closer
}

// Build creates every dependency named by cfg. On failure, whatever was
// already opened is closed before the error is returned.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("cleanup after failed build", zap.Error(closeErr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	a.logger.Info("building application dependencies",
		zap.String("store", a.cfg.Store.Driver),
		zap.String("cache", a.cfg.Cache.Driver),
		zap.String("llm_provider", a.cfg.LLM.Provider),
		zap.String("archive", a.cfg.Archive.Provider),
		zap.String("events", a.cfg.Events.Provider),
	)

	store, err := a.setupStore(ctx)
	if err != nil {
		return err
	}
	a.store = store

	cache, err := a.setupCache()
	if err != nil {
		return err
	}
	pageFetcher, err := a.setupFetcher()
	if err != nil {
		return err
	}
	extractor := extract.New(pageFetcher, cache, extract.Config{
		Limits: extract.Limits{
			TextCap:       a.cfg.Extractor.TextCap,
			HeroCap:       a.cfg.Extractor.HeroCap,
			HeroScanBytes: a.cfg.Extractor.HeroScanBytes,
		},
		Timeout:   a.cfg.Extractor.Timeout,
		UserAgent: a.cfg.Extractor.UserAgent,
	}, a.logger.Named("extract"))

	gen, err := llm.New(ctx, a.cfg.LLM, a.logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("llm init failed: %w", err)
	}
	runner := agent.NewRunner(gen, agent.Config{
		Timeout:     a.cfg.Agents.Timeout,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
	}, a.logger.Named("agent"))

	archive, err := a.setupArchive(ctx)
	if err != nil {
		return err
	}
	publisher, err := a.setupPublisher(ctx)
	if err != nil {
		return err
	}

	a.orchestrator, err = orchestrator.New(orchestrator.Deps{
		Store:     store,
		Extractor: extractor,
		Runner:    runner,
		IDs:       uuid.New(),
		Clock:     system.New(),
		Archive:   archive,
		Publisher: publisher,
	}, orchestrator.Config{
		Panel:           agent.DefaultPanel(),
		ScoringMode:     a.cfg.Scoring.Mode,
		FinalizeTimeout: a.cfg.Store.FinalizeTimeout,
		ArchivePrefix:   a.cfg.Archive.Prefix,
		EventsTopic:     a.cfg.Events.TopicName,
	}, a.logger.Named("orchestrator"))
	if err != nil {
		return fmt.Errorf("orchestrator init failed: %w", err)
	}
	return nil
}

func (a *App) setupStore(ctx context.Context) (audit.RecordStore, error) {
	switch a.cfg.Store.Driver {
	case "postgres":
		store, err := pgstore.NewRecordStore(ctx, pgstore.Config{
			DSN:             a.cfg.Store.DSN,
			Table:           a.cfg.Store.Table,
			MaxConns:        a.cfg.Store.MaxConns,
			MaxConnLifetime: a.cfg.Store.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("record store init failed: %w", err)
		}
		a.onClose("postgres", func() error { store.Close(); return nil })
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("record store schema: %w", err)
		}
		a.logger.Info("postgres record store initialized", zap.String("table", a.cfg.Store.Table))
		return store, nil
	case "sqlite":
		store, err := sqlitestore.Open(ctx, a.cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("record store init failed: %w", err)
		}
		a.onClose("sqlite", store.Close)
		a.logger.Info("sqlite record store initialized", zap.String("path", a.cfg.Store.SQLitePath))
		return store, nil
	case "memory", "":
		a.logger.Warn("using in-memory record store; audits are lost on restart")
		return memorystorage.NewRecordStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *App) setupCache() (audit.PageCache, error) {
	switch a.cfg.Cache.Driver {
	case "redis":
		client := rediscache.NewClient(a.cfg.Cache.RedisAddr, a.cfg.Cache.RedisDB)
		a.onClose("redis", client.Close)
		a.logger.Info("redis page cache enabled",
			zap.String("addr", a.cfg.Cache.RedisAddr),
			zap.Duration("ttl", a.cfg.Cache.TTL),
		)
		return rediscache.New(client, sha256.New(), a.cfg.Cache.TTL), nil
	case "memory":
		a.logger.Info("in-memory page cache enabled", zap.Duration("ttl", a.cfg.Cache.TTL))
		return memorycache.New(a.cfg.Cache.TTL, system.New()), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", a.cfg.Cache.Driver)
	}
}

func (a *App) setupFetcher() (audit.Fetcher, error) {
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent:    a.cfg.Extractor.UserAgent,
		Timeout:      a.cfg.Extractor.Timeout,
		MaxBodyBytes: a.cfg.Extractor.MaxBodyBytes,
	})
	a.logger.Info("using colly fetcher", zap.String("user_agent", a.cfg.Extractor.UserAgent))
	if !a.cfg.Extractor.Headless {
		return static, nil
	}

	headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       a.cfg.Extractor.MaxParallel,
		UserAgent:         a.cfg.Extractor.UserAgent,
		NavigationTimeout: a.cfg.Extractor.Timeout,
		MaxBodyBytes:      a.cfg.Extractor.MaxBodyBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("headless fetcher init failed: %w", err)
	}
	a.onClose("headless", func() error { headless.Close(); return nil })
	a.logger.Info("headless promotion enabled", zap.Int("max_parallel", a.cfg.Extractor.MaxParallel))
	return fetcher.NewPromoting(static, headless, detector.NewHeuristic(0), a.logger.Named("fetcher")), nil
}

func (a *App) setupArchive(ctx context.Context) (audit.BlobStore, error) {
	switch a.cfg.Archive.Provider {
	case "gcs":
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.onClose("gcs", client.Close)
		store, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket:       a.cfg.Archive.GCSBucket,
			CacheControl: "no-cache",
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("archiving reports to GCS", zap.String("bucket", a.cfg.Archive.GCSBucket))
		return store, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("archiving reports locally", zap.String("path", a.cfg.Archive.BaseDir))
		return store, nil
	case "memory":
		return memorystorage.NewBlobStore(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown archive provider %q", a.cfg.Archive.Provider)
	}
}

func (a *App) setupPublisher(ctx context.Context) (audit.Publisher, error) {
	switch a.cfg.Events.Provider {
	case "pubsub":
		client, err := gcppublisher.NewClient(ctx, a.cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		pub := gcppublisher.New(client, a.logger.Named("pubsub"))
		a.onClose("pubsub", pub.Close)
		if err := pub.VerifyTopic(ctx, a.cfg.Events.TopicName); err != nil {
			return nil, fmt.Errorf("pubsub topic check failed: %w", err)
		}
		a.logger.Info("Pub/Sub publisher initialized",
			zap.String("project", a.cfg.Events.ProjectID),
			zap.String("topic", a.cfg.Events.TopicName),
		)
		return pub, nil
	case "memory":
		return memorypublisher.New(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events provider %q", a.cfg.Events.Provider)
	}
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Orchestrator returns the audit pipeline.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orchestrator
}

// Auditor exposes the pipeline behind the narrow interface the API and CLI use.
func (a *App) Auditor() api.Auditor {
	return a.orchestrator
}

// Records returns the configured record store.
func (a *App) Records() audit.RecordStore {
	return a.store
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Ready pings the record store when it supports it.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return p.Ping(ctx)
	}
	return nil
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
