// Package config loads and validates audit service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SITEAUDIT_SERVER_PORT.
const EnvPrefix = "SITEAUDIT"

// DefaultLLMEndpoint is the Mistral chat-completions endpoint used by the
// openai provider unless llm.endpoint overrides it.
const DefaultLLMEndpoint = "https://api.mistral.ai/v1/chat/completions"

// mistralKeyEnv is read only for the openai provider on DefaultLLMEndpoint.
const mistralKeyEnv = "MISTRAL_API_KEY"

// envFile is loaded into the process environment before Viper reads it.
var envFile = ".env"

// Scoring modes for the overall score.
const (
	ScoringMean     = "mean"
	ScoringWeighted = "weighted"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Events    EventsConfig    `mapstructure:"events"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigin  string        `mapstructure:"allowed_origin"`
}

// ExtractorConfig governs page fetching and text extraction.
type ExtractorConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
	TextCap       int           `mapstructure:"text_cap"`
	HeroCap       int           `mapstructure:"hero_cap"`
	HeroScanBytes int           `mapstructure:"hero_scan_bytes"`
	Headless      bool          `mapstructure:"headless"`
	MaxParallel   int           `mapstructure:"headless_max_parallel"`
}

// LLMConfig selects and tunes the text-generation provider.
type LLMConfig struct {
	Provider          string  `mapstructure:"provider"`
	Endpoint          string  `mapstructure:"endpoint"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Temperature       float32 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// AgentsConfig bounds each analysis task.
type AgentsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScoringConfig picks how agent scores combine into the overall score.
type ScoringConfig struct {
	Mode string `mapstructure:"mode"`
}

// StoreConfig selects the audit record store.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	FinalizeTimeout time.Duration `mapstructure:"finalize_timeout"`
}

// CacheConfig enables the extracted-page cache.
type CacheConfig struct {
	Driver    string        `mapstructure:"driver"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// ArchiveConfig controls where finished reports are archived.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	BaseDir   string `mapstructure:"base_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig holds metadata for completion notifications.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features and the rotated log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind llm.api_key: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LLM.applyMistralKey()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("extractor.user_agent", "Mozilla/5.0 (compatible; SiteAuditBot/1.0)")
	v.SetDefault("extractor.timeout", "8s")
	v.SetDefault("extractor.max_body_bytes", 2*1024*1024)
	v.SetDefault("extractor.text_cap", 1500)
	v.SetDefault("extractor.hero_cap", 600)
	v.SetDefault("extractor.hero_scan_bytes", 4000)
	v.SetDefault("extractor.headless", false)
	v.SetDefault("extractor.headless_max_parallel", 2)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.endpoint", DefaultLLMEndpoint)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "mistral-small-latest")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("llm.burst", 6)
	v.SetDefault("agents.timeout", "5s")
	v.SetDefault("scoring.mode", ScoringMean)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "website_audits")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.max_conn_lifetime", "30m")
	v.SetDefault("store.sqlite_path", "siteaudit.db")
	v.SetDefault("store.finalize_timeout", "5s")
	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.base_dir", "data/reports")
	v.SetDefault("archive.prefix", "reports")
	v.SetDefault("events.provider", "none")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic_name", "audit-completed")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 14)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("extractor.timeout must be > 0")
	}
	if c.Extractor.TextCap <= 0 || c.Extractor.HeroCap <= 0 {
		return fmt.Errorf("extractor.text_cap and extractor.hero_cap must be > 0")
	}
	if c.Agents.Timeout <= 0 {
		return fmt.Errorf("agents.timeout must be > 0")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be > 0")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "none":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	switch c.Scoring.Mode {
	case ScoringMean, ScoringWeighted:
	default:
		return fmt.Errorf("unknown scoring.mode %q", c.Scoring.Mode)
	}
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.driver is postgres")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path must be set when store.driver is sqlite")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Cache.Driver {
	case "none":
	case "memory", "redis":
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be > 0 when cache.driver is %s", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	switch c.Archive.Provider {
	case "none", "memory", "local":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	switch c.Events.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicName == "" {
			return fmt.Errorf("events.project_id and events.topic_name must be set when events.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown events.provider %q", c.Events.Provider)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// applyMistralKey fills an empty api key from MISTRAL_API_KEY, but only when
// the request would actually go to Mistral.
func (l *LLMConfig) applyMistralKey() {
	if l.APIKey != "" || l.Provider != "openai" || l.Endpoint != DefaultLLMEndpoint {
		return
	}
	l.APIKey = os.Getenv(mistralKeyEnv)
}
