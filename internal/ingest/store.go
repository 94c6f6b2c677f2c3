// Package ingest maintains the canonical session row list of trace records,
// applying identity-based deduplication and business-rule exclusion on every
// insertion batch.
package ingest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dawon-meat/trace-cli/internal/model"
)

// AddResult reports the outcome of one insertion batch.
type AddResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Excluded   int `json:"excluded"`
}

// Summary renders a user-facing batch summary. Duplicate and excluded
// counts are always mentioned when non-zero, even if rows were added.
func (r AddResult) Summary() string {
	parts := []string{fmt.Sprintf("%d added", r.Added)}
	if r.Duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates skipped", r.Duplicates))
	}
	if r.Excluded > 0 {
		parts = append(parts, fmt.Sprintf("%d label numbers excluded", r.Excluded))
	}
	return strings.Join(parts, ", ")
}

// Store holds the session row list. Rows keep their insertion order and
// monotonically increasing ids; they live only for the session.
type Store struct {
	mu     sync.Mutex
	rows   []model.TraceRecord
	nextID int
}

// NewStore creates an empty ingest store.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// Add filters and appends a batch. Letter-prefixed numbers are excluded
// before the duplicate check, so a record is never counted as both. Keys
// added earlier in the same batch count for intra-batch deduplication.
func (s *Store) Add(batch []model.TraceRecord) AddResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.rows)+len(batch))
	for _, row := range s.rows {
		seen[row.IdentityKey()] = struct{}{}
	}

	var res AddResult
	for _, rec := range batch {
		if model.IsLabelNumber(rec.TraceNumber) {
			res.Excluded++
			continue
		}

		key := rec.IdentityKey()
		if _, dup := seen[key]; dup {
			res.Duplicates++
			continue
		}

		rec.ID = s.nextID
		s.nextID++
		seen[key] = struct{}{}
		s.rows = append(s.rows, rec)
		res.Added++
	}

	return res
}

// Rows returns a copy of the current row list in insertion order.
func (s *Store) Rows() []model.TraceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TraceRecord, len(s.rows))
	copy(out, s.rows)
	return out
}

// Get returns the row with the given id.
func (s *Store) Get(id int) (model.TraceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			return row, true
		}
	}
	return model.TraceRecord{}, false
}

// Remove deletes one row by id. Ids are never reused afterwards.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every row. The id counter keeps climbing so later rows do not
// collide with ids handed out before the clear.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
}

// Len returns the current row count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
