package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bollette/internal/core"
)

// BillService orchestrates user-facing bill operations across the store and
// the event bus.
type BillService struct {
	store  BillStore
	events EventPublisher
}

// NewBillService creates a bill service. events may be nil.
func NewBillService(store BillStore, events EventPublisher) *BillService {
	return &BillService{
		store:  store,
		events: events,
	}
}

// BillUpdate carries the editable bill fields; nil pointers leave the field
// unchanged.
type BillUpdate struct {
	Name        *string
	Category    *core.Category
	AmountCents *int64
	Frequency   *core.Frequency
	Status      *core.Status
	DueDate     *time.Time
}

// CreateBill validates and persists a new bill, precomputing its forward
// pointer from the due date so the daily sweep can pick it up later.
func (s *BillService) CreateBill(ctx context.Context, bill core.Bill) (core.Bill, error) {
	if bill.Status == "" {
		bill.Status = core.StatusDue
	}

	nextDue, err := core.NextDueDate(bill.Frequency, bill.DueDate)
	if err != nil {
		return core.Bill{}, err
	}
	bill.NextDueDate = nextDue

	if err := bill.Validate(); err != nil {
		return core.Bill{}, err
	}

	if err := s.store.CreateBill(ctx, &bill); err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}

	s.publishSync(ctx, bill.ID, bill.Version)
	return bill, nil
}

// GetBill returns one of the owner's bills.
func (s *BillService) GetBill(ctx context.Context, owner, id string) (*core.Bill, error) {
	return s.store.GetBill(ctx, owner, id)
}

// ListBills returns a page of the owner's bills and the total match count.
func (s *BillService) ListBills(ctx context.Context, f core.BillFilter) ([]core.Bill, int, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListBills(ctx, f)
}

// UpdateBill applies a partial edit to an owner's bill. Changing the
// frequency or due date recomputes the forward pointer.
func (s *BillService) UpdateBill(ctx context.Context, owner, id string, upd BillUpdate) (*core.Bill, error) {
	bill, err := s.store.GetBill(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		bill.Name = *upd.Name
	}
	if upd.Category != nil {
		bill.Category = *upd.Category
	}
	if upd.AmountCents != nil {
		bill.Amount = core.Money{Cents: *upd.AmountCents}
	}
	if upd.Frequency != nil {
		bill.Frequency = *upd.Frequency
	}
	if upd.Status != nil {
		bill.Status = *upd.Status
	}
	if upd.DueDate != nil {
		bill.DueDate = *upd.DueDate
	}

	if upd.Frequency != nil || upd.DueDate != nil {
		nextDue, err := core.NextDueDate(bill.Frequency, bill.DueDate)
		if err != nil {
			return nil, err
		}
		bill.NextDueDate = nextDue
	}

	if err := bill.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}

	s.publishSync(ctx, bill.ID, bill.Version)
	return bill, nil
}

// DeleteBill removes an owner's bill and publishes a delete event.
func (s *BillService) DeleteBill(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteBill(ctx, owner, id); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.PublishBillDelete(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message",
				"id", id, "error", err)
			// Bill is deleted locally; don't fail the request.
		}
	}
	return nil
}

func (s *BillService) publishSync(ctx context.Context, id string, version int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBillSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}
}

// Close releases the underlying store.
func (s *BillService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}
