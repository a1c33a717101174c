package memory

import (
	"context"
	"fmt"
	"sync"

	"caixa/internal/sheets"
)

// Store is an in-memory audit book for tests and local runs.
type Store struct {
	mu      sync.Mutex
	records []sheets.AuditRecord
}

func New() *Store {
	return &Store{}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, rec sheets.AuditRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return fmt.Sprintf("mem:%d", len(s.records)), nil
}

// Records returns a copy of the appended audit rows.
func (s *Store) Records() []sheets.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.AuditRecord(nil), s.records...)
}
