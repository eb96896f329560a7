// Package sqlite provides a single-file audit record store for local runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/JakeFAU/website-audit/internal/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS website_audits (
	id TEXT PRIMARY KEY,
	website_url TEXT NOT NULL,
	social_url TEXT,
	email TEXT,
	audit_results TEXT NOT NULL DEFAULT '{}',
	overall_score INTEGER,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// RecordStore persists audit records in a SQLite database file.
type RecordStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*RecordStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &RecordStore{db: db}, nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is usable.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// CreateRecord inserts a new audit row.
func (s *RecordStore) CreateRecord(ctx context.Context, record audit.Record) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO website_audits (id, website_url, social_url, email, status, created_at, updated_at)
VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`,
		record.ID,
		record.WebsiteURL,
		record.SocialURL,
		record.Email,
		string(record.Status),
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
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
	res, err := s.db.ExecContext(ctx, `
UPDATE website_audits
SET status = ?, overall_score = ?, audit_results = ?, updated_at = ?
WHERE id = ?`,
		string(update.Status),
		update.OverallScore,
		string(results),
		formatTime(update.UpdatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update audit record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update audit record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", id, audit.ErrRecordNotFound)
	}
	return nil
}

// GetRecord loads one audit row.
func (s *RecordStore) GetRecord(ctx context.Context, id string) (audit.Record, error) {
	var (
		record  audit.Record
		status  string
		score   sql.NullInt64
		results string
		created string
		updated string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, website_url, COALESCE(social_url, ''), COALESCE(email, ''), status,
	overall_score, audit_results, created_at, updated_at
FROM website_audits
WHERE id = ?`, id).Scan(
		&record.ID,
		&record.WebsiteURL,
		&record.SocialURL,
		&record.Email,
		&status,
		&score,
		&results,
		&created,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Record{}, fmt.Errorf("get %s: %w", id, audit.ErrRecordNotFound)
	}
	if err != nil {
		return audit.Record{}, fmt.Errorf("select audit record: %w", err)
	}

	record.Status = audit.Status(status)
	if score.Valid {
		v := int(score.Int64)
		record.OverallScore = &v
	}
	if results != "" && results != "{}" {
		var report audit.Report
		if err := json.Unmarshal([]byte(results), &report); err != nil {
			return audit.Record{}, fmt.Errorf("decode audit results: %w", err)
		}
		record.Results = &report
	}
	if record.CreatedAt, err = parseTime(created); err != nil {
		return audit.Record{}, err
	}
	if record.UpdatedAt, err = parseTime(updated); err != nil {
		return audit.Record{}, err
	}
	return record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
