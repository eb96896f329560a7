package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/config"
	"github.com/JakeFAU/website-audit/internal/orchestrator"
)

const knownID = "0190b6a8-7c3e-7d1f-9a2b-3c4d5e6f7a8b"

type fakeAuditor struct {
	mu     sync.Mutex
	calls  []audit.Request
	result orchestrator.Result
	err    error
	panic  bool
}

func (f *fakeAuditor) RunAudit(_ context.Context, req audit.Request) (orchestrator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.panic {
		panic("boom")
	}
	return f.result, f.err
}

type fakeRecords struct {
	records map[string]audit.Record
	err     error
}

func (f *fakeRecords) GetRecord(_ context.Context, id string) (audit.Record, error) {
	if f.err != nil {
		return audit.Record{}, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return audit.Record{}, fmt.Errorf("get %s: %w", id, audit.ErrRecordNotFound)
	}
	return rec, nil
}

func newTestServer(auditor Auditor, records RecordReader, opts ...Option) *Server {
	return NewServer(auditor, records, config.ServerConfig{RequestTimeout: 5 * time.Second}, zap.NewNop(), opts...)
}

func completedResult() orchestrator.Result {
	return orchestrator.Result{
		ID:     knownID,
		Status: audit.StatusCompleted,
		Report: audit.Report{
			WebsiteURL:         "https://example.com",
			OverallScore:       69,
			TopRecommendations: []string{"Clarify the headline"},
		},
	}
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func requireCORS(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowHeaders, rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, corsAllowMethods, rr.Header().Get("Access-Control-Allow-Methods"))
}

func TestCreateAuditSucceeds(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/audit", "/v1/audits"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			auditor := &fakeAuditor{result: completedResult()}
			s := newTestServer(auditor, nil)

			rr := do(t, s, http.MethodPost, path, `{"website_url":"example.com","email":"a@b.test"}`)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			requireCORS(t, rr)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, knownID, body["id"])
			assert.EqualValues(t, 69, body["overallScore"])
			assert.Equal(t, "https://example.com", body["website_url"])
			assert.Equal(t, "completed", body["status"])
			results, ok := body["auditResults"].(map[string]any)
			require.True(t, ok)
			assert.EqualValues(t, 69, results["overall_score"])

			require.Len(t, auditor.calls, 1)
			assert.Equal(t, audit.Request{WebsiteURL: "example.com", Email: "a@b.test"}, auditor.calls[0])
		})
	}
}

func TestCreateAuditBadRequests(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body    string
		auditor *fakeAuditor
		errText string
	}{
		"invalid json": {body: `{"website_url":`, auditor: &fakeAuditor{}, errText: "invalid JSON"},
		"missing url":  {body: `{"email":"a@b.test"}`, auditor: &fakeAuditor{}, errText: "Website URL is required"},
		"blank url":    {body: `{"website_url":"   "}`, auditor: &fakeAuditor{}, errText: "Website URL is required"},
		"unparseable": {
			body:    `{"website_url":"ftp://x"}`,
			auditor: &fakeAuditor{err: fmt.Errorf("%w: unsupported scheme", orchestrator.ErrInvalidRequest)},
			errText: "invalid website URL",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(tc.auditor, nil)

			rr := do(t, s, http.MethodPost, "/v1/audits", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			requireCORS(t, rr)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.errText, body.Error)
		})
	}
}

func TestCreateAuditPersistenceFailure(t *testing.T) {
	t.Parallel()

	auditor := &fakeAuditor{err: fmt.Errorf("%w: create record: %w", orchestrator.ErrPersistence, errors.New("db down"))}
	s := newTestServer(auditor, nil)

	rr := do(t, s, http.MethodPost, "/audit", `{"website_url":"example.com"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Failed to create audit record", body.Error)
	assert.Contains(t, body.Details, "db down")
}

func TestPreflightOnAnyPath(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeAuditor{}, nil)
	for _, path := range []string{"/audit", "/v1/audits", "/does/not/exist"} {
		rr := do(t, s, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusNoContent, rr.Code, path)
		assert.Empty(t, rr.Body.String())
		requireCORS(t, rr)
	}
}

func TestGetAudit(t *testing.T) {
	t.Parallel()

	score := 69
	records := &fakeRecords{records: map[string]audit.Record{
		knownID: {ID: knownID, WebsiteURL: "example.com", Status: audit.StatusCompleted, OverallScore: &score},
	}}
	s := newTestServer(&fakeAuditor{}, records)

	rr := do(t, s, http.MethodGet, "/v1/audits/"+knownID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rec audit.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "example.com", rec.WebsiteURL)
	assert.Equal(t, 69, *rec.OverallScore)

	rr = do(t, s, http.MethodGet, "/v1/audits/0190b6a8-0000-7000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, s, http.MethodGet, "/v1/audits/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetAuditStoreErrors(t *testing.T) {
	t.Parallel()

	rr := do(t, newTestServer(&fakeAuditor{}, nil), http.MethodGet, "/v1/audits/"+knownID, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = do(t, newTestServer(&fakeAuditor{}, &fakeRecords{err: errors.New("timeout")}), http.MethodGet, "/v1/audits/"+knownID, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestProbes(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeAuditor{}, nil)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz", "").Code)

	rr := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "siteaudit_")

	failing := newTestServer(&fakeAuditor{}, nil, WithReadiness(func(context.Context) error {
		return errors.New("postgres unreachable")
	}))
	rr = do(t, failing, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "postgres unreachable")
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeAuditor{panic: true}, nil)
	rr := do(t, s, http.MethodPost, "/audit", `{"website_url":"example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	requireCORS(t, rr)
}

func TestRequestIDPropagates(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeAuditor{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "caller-id", rr.Header().Get("X-Request-ID"))
}
