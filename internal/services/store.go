// Package services provides business logic and orchestration for recurring
// bills: user-facing CRUD, the rollover processor, and the daily sweep.
package services

import (
	"context"
	"time"

	"bollette/internal/core"
)

// BillStore defines the persistence operations the services need.
// This abstraction allows swapping storage backends without changing the
// service layer, and testing against fakes.
type BillStore interface {
	// CreateBill persists a new bill. The bill's ID and Version fields are
	// populated by the store.
	CreateBill(ctx context.Context, bill *core.Bill) error

	// GetBill retrieves a bill by ID, scoped to its owner.
	// Returns storage.ErrNotFound when no such bill exists.
	GetBill(ctx context.Context, owner, id string) (*core.Bill, error)

	// ListBills returns one page of an owner's bills plus the total count.
	ListBills(ctx context.Context, f core.BillFilter) ([]core.Bill, int, error)

	// ListDueBills returns all bills, across owners, whose NextDueDate is
	// set and not after now.
	ListDueBills(ctx context.Context, now time.Time) ([]core.Bill, error)

	// UpdateBill writes the bill conditional on its Version and increments
	// it. Returns storage.ErrConflict on a concurrent edit.
	UpdateBill(ctx context.Context, bill *core.Bill) error

	// DeleteBill removes an owner's bill.
	DeleteBill(ctx context.Context, owner, id string) error

	// ReplaceBill atomically inserts the replacement and deletes the old
	// record, conditional on old.Version. The replacement's ID and Version
	// are populated by the store.
	ReplaceBill(ctx context.Context, old core.Bill, repl *core.Bill) error

	// Close releases any resources held by the store.
	Close() error
}

// EventPublisher is the outbound port for the bill event bus. Implementations
// must be safe for concurrent use. Publishing is best-effort: callers log
// failures and move on, the store stays the source of truth.
type EventPublisher interface {
	PublishBillSync(ctx context.Context, id string, version int64) error
	PublishBillDelete(ctx context.Context, id string) error
}
