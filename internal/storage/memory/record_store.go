package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/website-audit/internal/audit"
)

// ErrDuplicateRecord is returned when an ID is created twice.
var ErrDuplicateRecord = errors.New("audit record already exists")

// RecordStore provides an in-memory audit record store for development/testing.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]audit.Record
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]audit.Record)}
}

// CreateRecord stores a new record.
func (s *RecordStore) CreateRecord(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("create %s: %w", record.ID, ErrDuplicateRecord)
	}
	s.records[record.ID] = record
	return nil
}

// UpdateRecord writes the final status, score and report.
func (s *RecordStore) UpdateRecord(_ context.Context, id string, update audit.RecordUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, audit.ErrRecordNotFound)
	}
	score := update.OverallScore
	report := update.Results
	record.Status = update.Status
	record.OverallScore = &score
	record.Results = &report
	record.UpdatedAt = update.UpdatedAt
	s.records[id] = record
	return nil
}

// GetRecord fetches a record by ID.
func (s *RecordStore) GetRecord(_ context.Context, id string) (audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return audit.Record{}, fmt.Errorf("get %s: %w", id, audit.ErrRecordNotFound)
	}
	return record, nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
