// Package fetcher composes the static and headless fetchers.
package fetcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/audit"
)

// Detector decides whether a static response needs a browser render.
type Detector interface {
	ShouldPromote(resp audit.FetchResponse) bool
}

// Promoting fetches statically first and re-fetches through a headless
// browser when the static markup looks client-rendered.
type Promoting struct {
	static   audit.Fetcher
	headless audit.Fetcher
	detector Detector
	logger   *zap.Logger
}

// NewPromoting builds a Promoting fetcher. A nil headless fetcher disables promotion.
func NewPromoting(static, headless audit.Fetcher, detector Detector, logger *zap.Logger) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{static: static, headless: headless, detector: detector, logger: logger}
}

// Fetch implements audit.Fetcher.
func (p *Promoting) Fetch(ctx context.Context, request audit.FetchRequest) (audit.FetchResponse, error) {
	resp, err := p.static.Fetch(ctx, request)
	if err != nil {
		return audit.FetchResponse{}, err
	}
	if p.headless == nil || p.detector == nil || !p.detector.ShouldPromote(resp) {
		return resp, nil
	}

	rendered, err := p.headless.Fetch(ctx, request)
	if err != nil {
		p.logger.Warn("headless render failed; using static body",
			zap.String("url", request.URL),
			zap.Error(err),
		)
		return resp, nil
	}
	p.logger.Debug("promoted fetch to headless",
		zap.String("url", request.URL),
		zap.Int("static_bytes", len(resp.Body)),
		zap.Int("rendered_bytes", len(rendered.Body)),
	)
	return rendered, nil
}
