// Package memory provides an in-memory dispatch history.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// HistoryStore is an in-memory implementation of dispatch.HistoryStore.
type HistoryStore struct {
	records []dispatch.Record
	nextID  int64
	mu      sync.RWMutex
}

var _ dispatch.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{nextID: 1}
}

// Report appends the report to the history.
func (s *HistoryStore) Report(ctx context.Context, report dispatch.Report) error {
	_, err := s.Save(ctx, report)
	return err
}

// Save appends the report and returns its record id.
func (s *HistoryStore) Save(ctx context.Context, report dispatch.Report) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.records = append(s.records, dispatch.Record{ID: id, Report: report})
	return id, nil
}

// Get retrieves a record by id.
func (s *HistoryStore) Get(ctx context.Context, id int64) (dispatch.Record, error) {
	if err := ctx.Err(); err != nil {
		return dispatch.Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// ids are assigned densely from 1
	if id < 1 || id > int64(len(s.records)) {
		return dispatch.Record{}, fmt.Errorf("%w: %d", dispatch.ErrRecordNotFound, id)
	}
	return s.records[id-1], nil
}

// List returns records matching the filter, newest first.
func (s *HistoryStore) List(ctx context.Context, filter dispatch.ListFilter) ([]dispatch.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dispatch.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if !filter.Matches(s.records[i]) {
			continue
		}
		out = append(out, s.records[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
