package memory

import (
	"context"
	"fmt"
	"sync"

	"bollette/internal/sheets"
)

// Store is an in-memory ledger used in tests and when no spreadsheet is
// configured.
type Store struct {
	mu    sync.Mutex
	items []sheets.LedgerEntry
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e sheets.LedgerEntry) (string, error) {
	if e.BillID == "" {
		return "", fmt.Errorf("ledger entry has no bill id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []sheets.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.LedgerEntry(nil), s.items...)
}
