// Package postgres provides the Postgres-backed audit record store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/website-audit/internal/audit"
)

const defaultTable = "website_audits"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for audit records.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// RecordStore persists audit records in a single table.
type RecordStore struct {
	pool  Pool
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool Pool, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity for readiness probes.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the audit table when it does not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	website_url text NOT NULL,
	social_url text,
	email text,
	audit_results jsonb NOT NULL DEFAULT '{}'::jsonb,
	overall_score integer,
	status text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// CreateRecord inserts a new audit row.
func (s *RecordStore) CreateRecord(ctx context.Context, record audit.Record) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	website_url,
	social_url,
	email,
	audit_results,
	status,
	created_at,
	updated_at
) VALUES (
	$1,$2,NULLIF($3,''),NULLIF($4,''),'{}'::jsonb,$5,$6,$7
)`, s.table)

	args := []any{
		record.ID,
		record.WebsiteURL,
		record.SocialURL,
		record.Email,
		string(record.Status),
		record.CreatedAt,
		record.UpdatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// UpdateRecord writes the final status, score and report of an audit.
func (s *RecordStore) UpdateRecord(ctx context.Context, id string, update audit.RecordUpdate) error {
	results, err := json.Marshal(update.Results)
	if err != nil {
		return fmt.Errorf("marshal audit results: %w", err)
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $2, overall_score = $3, audit_results = $4, updated_at = $5
WHERE id = $1`, s.table)

	tag, err := s.pool.Exec(ctx, query, id, string(update.Status), update.OverallScore, results, update.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update audit record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", id, audit.ErrRecordNotFound)
	}
	return nil
}

// GetRecord loads one audit row.
func (s *RecordStore) GetRecord(ctx context.Context, id string) (audit.Record, error) {
	query := fmt.Sprintf(`
SELECT
	id::text,
	website_url,
	COALESCE(social_url, ''),
	COALESCE(email, ''),
	status,
	COALESCE(overall_score, -1),
	audit_results,
	created_at,
	updated_at
FROM %s
WHERE id = $1`, s.table)

	var (
		record  audit.Record
		status  string
		score   int
		results []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.WebsiteURL,
		&record.SocialURL,
		&record.Email,
		&status,
		&score,
		&results,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Record{}, fmt.Errorf("get %s: %w", id, audit.ErrRecordNotFound)
	}
	if err != nil {
		return audit.Record{}, fmt.Errorf("select audit record: %w", err)
	}
	record.Status = audit.Status(status)
	if score >= 0 {
		record.OverallScore = &score
	}
	report, err := decodeReport(results)
	if err != nil {
		return audit.Record{}, err
	}
	record.Results = report
	return record, nil
}

// decodeReport returns nil for the empty object written at creation time.
func decodeReport(raw []byte) (*audit.Report, error) {
	if len(raw) == 0 || string(raw) == "{}" {
		return nil, nil
	}
	var report audit.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode audit results: %w", err)
	}
	return &report, nil
}
