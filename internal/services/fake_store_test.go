package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bollette/internal/core"
	"bollette/internal/storage"
)

// fakeStore is an in-memory BillStore for service tests. It mirrors the
// SQLite repository's contract: IDs assigned at insert, versioned writes,
// atomic replace.
type fakeStore struct {
	mu     sync.Mutex
	bills  map[string]core.Bill
	nextID int

	listDueErr error
	replaceErr map[string]error // old bill ID -> forced error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bills:      make(map[string]core.Bill),
		replaceErr: make(map[string]error),
	}
}

func (s *fakeStore) assignID() string {
	s.nextID++
	return fmt.Sprintf("bill-%d", s.nextID)
}

// seed inserts a bill directly, bypassing service-level validation.
func (s *fakeStore) seed(b core.Bill) core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = s.assignID()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	s.bills[b.ID] = b
	return b
}

func (s *fakeStore) get(id string) (core.Bill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	return b, ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bills)
}

func (s *fakeStore) CreateBill(_ context.Context, b *core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = s.assignID()
	}
	b.Version = 1
	s.bills[b.ID] = *b
	return nil
}

func (s *fakeStore) GetBill(_ context.Context, owner, id string) (*core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok || b.Owner != owner {
		return nil, storage.ErrNotFound
	}
	copy := b
	return &copy, nil
}

func (s *fakeStore) ListBills(_ context.Context, f core.BillFilter) ([]core.Bill, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Bill
	for _, b := range s.bills {
		if b.Owner != f.Owner {
			continue
		}
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *fakeStore) ListDueBills(_ context.Context, now time.Time) ([]core.Bill, error) {
	if s.listDueErr != nil {
		return nil, s.listDueErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Bill
	for _, b := range s.bills {
		if !b.NextDueDate.IsZero() && !b.NextDueDate.After(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateBill(_ context.Context, b *core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bills[b.ID]
	if !ok || cur.Owner != b.Owner {
		return storage.ErrNotFound
	}
	if cur.Version != b.Version {
		return storage.ErrConflict
	}
	b.Version++
	s.bills[b.ID] = *b
	return nil
}

func (s *fakeStore) DeleteBill(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok || b.Owner != owner {
		return storage.ErrNotFound
	}
	delete(s.bills, id)
	return nil
}

func (s *fakeStore) ReplaceBill(_ context.Context, old core.Bill, repl *core.Bill) error {
	if err := s.replaceErr[old.ID]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bills[old.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.Version != old.Version {
		return storage.ErrConflict
	}
	if repl.ID == "" {
		repl.ID = s.assignID()
	}
	repl.Version = 1
	s.bills[repl.ID] = *repl
	delete(s.bills, old.ID)
	return nil
}

func (s *fakeStore) Close() error { return nil }

// fakePublisher records published events.
type fakePublisher struct {
	mu      sync.Mutex
	syncs   []string
	deletes []string
	failErr error
}

func (p *fakePublisher) PublishBillSync(_ context.Context, id string, _ int64) error {
	if p.failErr != nil {
		return p.failErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncs = append(p.syncs, id)
	return nil
}

func (p *fakePublisher) PublishBillDelete(_ context.Context, id string) error {
	if p.failErr != nil {
		return p.failErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes = append(p.deletes, id)
	return nil
}
