// Package extract turns a website URL into the bounded text fragments the
// analysis panel consumes.
package extract

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/metrics"
)

const defaultTimeout = 8 * time.Second

// Extraction outcomes reported to metrics.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeCacheHit = "cache_hit"
)

// Config tunes the Extractor.
type Config struct {
	Limits
	Timeout   time.Duration
	UserAgent string
}

// Extractor fetches a page and derives an audit.ExtractedPage. Fetch
// failures, timeouts and non-2xx responses degrade to the placeholder page.
type Extractor struct {
	fetcher audit.Fetcher
	cache   audit.PageCache
	cfg     Config
	logger  *zap.Logger
}

// New builds an Extractor. cache may be nil.
func New(fetcher audit.Fetcher, cache audit.PageCache, cfg Config, logger *zap.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Limits = cfg.Limits.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{fetcher: fetcher, cache: cache, cfg: cfg, logger: logger}
}

// Extract implements audit.Extractor.
func (e *Extractor) Extract(ctx context.Context, url string) audit.ExtractedPage {
	if page, ok := e.cached(ctx, url); ok {
		metrics.ObserveExtraction(OutcomeCacheHit)
		return page
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req := audit.FetchRequest{URL: url, Headers: http.Header{}}
	if e.cfg.UserAgent != "" {
		req.Headers.Set("User-Agent", e.cfg.UserAgent)
	}
	resp, err := e.fetcher.Fetch(fetchCtx, req)
	if err != nil {
		e.logger.Warn("page fetch failed; continuing with placeholder content",
			zap.String("url", url),
			zap.Error(err),
		)
		metrics.ObserveExtraction(OutcomeDegraded)
		return audit.UnavailablePage(url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warn("page returned non-success status; continuing with placeholder content",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		metrics.ObserveExtraction(OutcomeDegraded)
		return audit.UnavailablePage(url)
	}

	page := Parse(url, resp.Body, e.cfg.Limits)
	e.logger.Debug("page extracted",
		zap.String("url", url),
		zap.Int("bytes", len(resp.Body)),
		zap.Bool("headless", resp.UsedHeadless),
		zap.Duration("fetch_duration", resp.Duration),
	)
	metrics.ObserveExtraction(OutcomeOK)
	e.store(ctx, url, page)
	return page
}

func (e *Extractor) cached(ctx context.Context, url string) (audit.ExtractedPage, bool) {
	if e.cache == nil {
		return audit.ExtractedPage{}, false
	}
	page, ok, err := e.cache.Get(ctx, url)
	if err != nil {
		e.logger.Warn("page cache read failed", zap.String("url", url), zap.Error(err))
		return audit.ExtractedPage{}, false
	}
	return page, ok
}

func (e *Extractor) store(ctx context.Context, url string, page audit.ExtractedPage) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, url, page); err != nil {
		e.logger.Warn("page cache write failed", zap.String("url", url), zap.Error(err))
	}
}
