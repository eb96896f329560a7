package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/config"
	auditid "github.com/JakeFAU/website-audit/internal/id/uuid"
	"github.com/JakeFAU/website-audit/internal/metrics"
	"github.com/JakeFAU/website-audit/internal/orchestrator"
)

const (
	maxRequestBytes = 64 << 10
	readTimeout     = 3 * time.Second
	defaultTimeout  = 60 * time.Second
)

// Auditor runs one audit end to end.
type Auditor interface {
	RunAudit(ctx context.Context, req audit.Request) (orchestrator.Result, error)
}

// RecordReader loads stored audit records.
type RecordReader interface {
	GetRecord(ctx context.Context, id string) (audit.Record, error)
}

// ReadinessCheck reports whether downstream dependencies are usable.
type ReadinessCheck func(ctx context.Context) error

// Server wires HTTP handlers to the orchestrator and record store.
type Server struct {
	router  chi.Router
	auditor Auditor
	records RecordReader
	ready   ReadinessCheck
	logger  *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithReadiness installs the /readyz dependency check.
func WithReadiness(check ReadinessCheck) Option {
	return func(s *Server) { s.ready = check }
}

// NewServer constructs a Server with middleware and routes.
func NewServer(auditor Auditor, records RecordReader, cfg config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		auditor: auditor,
		records: records,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	r := chi.NewRouter()
	r.Use(corsMiddleware(origin))
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		r.Post("/audit", s.createAudit)
		r.Route("/v1/audits", func(r chi.Router) {
			r.Post("/", s.createAudit)
			r.Get("/{audit_id}", s.getAudit)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type auditResponse struct {
	ID           string       `json:"id"`
	OverallScore int          `json:"overallScore"`
	AuditResults audit.Report `json:"auditResults"`
	WebsiteURL   string       `json:"website_url"`
	Status       audit.Status `json:"status"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	var req audit.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	if strings.TrimSpace(req.WebsiteURL) == "" {
		writeError(w, http.StatusBadRequest, "Website URL is required", "")
		return
	}

	result, err := s.auditor.RunAudit(r.Context(), req)
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid website URL", err.Error())
		return
	case err != nil:
		s.logger.Error("audit failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create audit record", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, auditResponse{
		ID:           result.ID,
		OverallScore: result.Report.OverallScore,
		AuditResults: result.Report,
		WebsiteURL:   result.Report.WebsiteURL,
		Status:       result.Status,
	})
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusServiceUnavailable, "record store unavailable", "")
		return
	}
	id := chi.URLParam(r, "audit_id")
	if !auditid.Valid(id) {
		writeError(w, http.StatusBadRequest, "invalid audit id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	record, err := s.records.GetRecord(ctx, id)
	switch {
	case errors.Is(err, audit.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "audit not found", "")
		return
	case err != nil:
		s.logger.Error("load audit record failed", zap.String("audit_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load audit", "")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}
