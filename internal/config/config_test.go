package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Extractor.Timeout != 8*time.Second {
		t.Fatalf("expected extractor timeout 8s, got %v", cfg.Extractor.Timeout)
	}
	if cfg.Extractor.TextCap != 1500 || cfg.Extractor.HeroCap != 600 || cfg.Extractor.HeroScanBytes != 4000 {
		t.Fatalf("unexpected extractor caps: %+v", cfg.Extractor)
	}
	if cfg.Agents.Timeout != 5*time.Second {
		t.Fatalf("expected agent timeout 5s, got %v", cfg.Agents.Timeout)
	}
	if cfg.LLM.MaxTokens != 500 || cfg.LLM.Temperature != 0.2 {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.Scoring.Mode != ScoringMean {
		t.Fatalf("expected mean scoring, got %q", cfg.Scoring.Mode)
	}
	if cfg.Store.Driver != "memory" || cfg.Store.Table != "website_audits" {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("expected addr :8080, got %q", cfg.Addr())
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout: 45s
extractor:
  timeout: 3s
  text_cap: 800
  headless: true
llm:
  provider: gemini
  model: gemini-2.0-flash
  api_key: from-file
agents:
  timeout: 2s
scoring:
  mode: weighted
store:
  driver: sqlite
  sqlite_path: /tmp/audits.db
cache:
  driver: redis
  ttl: 1m
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.RequestTimeout != 45*time.Second {
		t.Fatalf("expected server overrides to apply: %+v", cfg.Server)
	}
	if cfg.Extractor.Timeout != 3*time.Second || cfg.Extractor.TextCap != 800 || !cfg.Extractor.Headless {
		t.Fatalf("expected extractor overrides to apply: %+v", cfg.Extractor)
	}
	if cfg.Extractor.HeroCap != 600 {
		t.Fatalf("expected untouched default hero cap, got %d", cfg.Extractor.HeroCap)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("expected llm overrides to apply: %+v", cfg.LLM)
	}
	if cfg.Agents.Timeout != 2*time.Second {
		t.Fatalf("expected agent timeout 2s, got %v", cfg.Agents.Timeout)
	}
	if cfg.Scoring.Mode != ScoringWeighted {
		t.Fatalf("expected weighted scoring, got %q", cfg.Scoring.Mode)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.SQLitePath != "/tmp/audits.db" {
		t.Fatalf("expected store overrides to apply: %+v", cfg.Store)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.TTL != time.Minute {
		t.Fatalf("expected cache overrides to apply: %+v", cfg.Cache)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected production logging")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SITEAUDIT_SERVER_PORT", "7070")
	t.Setenv("SITEAUDIT_SCORING_MODE", "weighted")
	t.Setenv("SITEAUDIT_LLM_API_KEY", "")
	t.Setenv("MISTRAL_API_KEY", "mistral-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Scoring.Mode != ScoringWeighted {
		t.Fatalf("expected env scoring mode, got %q", cfg.Scoring.Mode)
	}
	if cfg.LLM.APIKey != "mistral-secret" {
		t.Fatalf("expected MISTRAL_API_KEY fallback, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadMistralKeyOnlyForMistralEndpoint(t *testing.T) {
	t.Setenv("SITEAUDIT_LLM_API_KEY", "")
	t.Setenv("MISTRAL_API_KEY", "mistral-secret")

	tests := []struct {
		name     string
		provider string
		endpoint string
		want     string
	}{
		{"default mistral endpoint", "openai", "", "mistral-secret"},
		{"gemini provider", "gemini", "", ""},
		{"custom openai endpoint", "openai", "https://llm.internal.test/v1/chat/completions", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SITEAUDIT_LLM_PROVIDER", tt.provider)
			t.Setenv("SITEAUDIT_LLM_ENDPOINT", tt.endpoint)
			if tt.endpoint == "" {
				if err := os.Unsetenv("SITEAUDIT_LLM_ENDPOINT"); err != nil {
					t.Fatalf("unset: %v", err)
				}
			}

			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.LLM.APIKey != tt.want {
				t.Fatalf("expected api key %q, got %q", tt.want, cfg.LLM.APIKey)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SITEAUDIT_EXTRACTOR_TEXT_CAP=321\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("SITEAUDIT_EXTRACTOR_TEXT_CAP", "")
	if err := os.Unsetenv("SITEAUDIT_EXTRACTOR_TEXT_CAP"); err != nil {
		t.Fatalf("unset: %v", err)
	}

	prev := envFile
	envFile = path
	t.Cleanup(func() { envFile = prev })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Extractor.TextCap != 321 {
		t.Fatalf("expected .env text cap 321, got %d", cfg.Extractor.TextCap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080},
		Extractor: ExtractorConfig{Timeout: time.Second, TextCap: 10, HeroCap: 10},
		LLM:       LLMConfig{Provider: "openai", MaxTokens: 100, Temperature: 0.2},
		Agents:    AgentsConfig{Timeout: time.Second},
		Scoring:   ScoringConfig{Mode: ScoringMean},
		Store:     StoreConfig{Driver: "memory"},
		Cache:     CacheConfig{Driver: "none"},
		Archive:   ArchiveConfig{Provider: "none"},
		Events:    EventsConfig{Provider: "none"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid extractor timeout", func(c *Config) { c.Extractor.Timeout = 0 }, "extractor.timeout"},
		{"invalid caps", func(c *Config) { c.Extractor.HeroCap = 0 }, "extractor.text_cap"},
		{"invalid agent timeout", func(c *Config) { c.Agents.Timeout = 0 }, "agents.timeout"},
		{"invalid max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, "llm.max_tokens"},
		{"invalid temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
		{"unknown scoring", func(c *Config) { c.Scoring.Mode = "median" }, "scoring.mode"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"redis without ttl", func(c *Config) { c.Cache.Driver = "redis" }, "cache.ttl"},
		{"memory cache with negative ttl", func(c *Config) { c.Cache.Driver = "memory"; c.Cache.TTL = -time.Second }, "cache.ttl"},
		{"gcs without bucket", func(c *Config) { c.Archive.Provider = "gcs" }, "archive.gcs_bucket"},
		{"pubsub without project", func(c *Config) { c.Events.Provider = "pubsub" }, "events.project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
