package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/config"
)

func sampleRequest() audit.GenerationRequest {
	return audit.GenerationRequest{
		SystemPrompt: "You are a hero section analyst.",
		UserPrompt:   "Hero: Ship faster",
		Temperature:  0.2,
		MaxTokens:    500,
	}
}

func TestOpenAIClientGenerate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-small-latest", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		assert.InDelta(t, 0.2, req.Temperature, 1e-6)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
			assert.Equal(t, "Hero: Ship faster", req.Messages[1].Content)
		}

		_, _ = fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\":92}"}}],"usage":{"prompt_tokens":10}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{Endpoint: srv.URL, APIKey: "secret", Model: "mistral-small-latest"}, srv.Client(), nil)
	out, err := c.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, `{"score":92}`, out)
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "non-200",
			status: http.StatusTooManyRequests,
			body:   `{"error":"slow down"}`,
			wantErr: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
				require.Contains(t, statusErr.Error(), "slow down")
			},
		},
		{
			name:   "empty choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			wantErr: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyResponse)
			},
		},
		{
			name:   "invalid json",
			status: http.StatusOK,
			body:   `not json`,
			wantErr: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "decode chat response")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c := NewOpenAIClient(OpenAIConfig{Endpoint: srv.URL, APIKey: "k"}, srv.Client(), nil)
			_, err := c.Generate(context.Background(), sampleRequest())
			require.Error(t, err)
			tc.wantErr(t, err)
		})
	}
}

func TestOpenAIClientHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := NewOpenAIClient(OpenAIConfig{Endpoint: srv.URL, APIKey: "k"}, srv.Client(), nil)
	_, err := c.Generate(ctx, sampleRequest())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	_, err := Disabled{}.Generate(context.Background(), sampleRequest())
	require.ErrorIs(t, err, ErrDisabled)
}

type countingGenerator struct{ calls atomic.Int32 }

func (c *countingGenerator) Generate(context.Context, audit.GenerationRequest) (string, error) {
	c.calls.Add(1)
	return "ok", nil
}

func TestNewLimitedPassThrough(t *testing.T) {
	t.Parallel()

	next := &countingGenerator{}
	require.Same(t, next, NewLimited(next, 0, 0))
}

func TestLimitedBlocksUntilContextDone(t *testing.T) {
	t.Parallel()

	next := &countingGenerator{}
	gen := NewLimited(next, 0.001, 1)

	out, err := gen.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gen.Generate(ctx, sampleRequest())
	require.Error(t, err)
	require.Equal(t, int32(1), next.calls.Load())
}

func TestFactory(t *testing.T) {
	t.Parallel()

	gen, err := New(context.Background(), config.LLMConfig{Provider: "openai"}, nil)
	require.NoError(t, err)
	require.IsType(t, Disabled{}, gen)

	gen, err = New(context.Background(), config.LLMConfig{Provider: "none", APIKey: "k"}, nil)
	require.NoError(t, err)
	require.IsType(t, Disabled{}, gen)

	gen, err = New(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, gen)

	gen, err = New(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "k", RequestsPerSecond: 2, Burst: 6}, nil)
	require.NoError(t, err)
	require.IsType(t, &Limited{}, gen)

	gen, err = New(context.Background(), config.LLMConfig{Provider: "gemini", APIKey: "k", Model: "gemini-test"}, nil)
	require.NoError(t, err)
	require.IsType(t, &GeminiClient{}, gen)

	_, err = New(context.Background(), config.LLMConfig{Provider: "bard", APIKey: "k"}, nil)
	require.Error(t, err)
}

func TestGeminiClientGenerate(t *testing.T) {
	t.Parallel()

	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Hero: Ship faster")
		assert.Contains(t, string(body), "hero section analyst")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"score\":80}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "k", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, `{"score":80}`, out)
	require.True(t, strings.HasSuffix(path.Load().(string), "gemini-test:generateContent"))
}

func TestGeminiClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrDisabled))
}
