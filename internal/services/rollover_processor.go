package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bollette/internal/core"
)

// RolloverProcessor advances a single overdue bill to its next occurrence.
type RolloverProcessor struct {
	store  BillStore
	events EventPublisher
}

// NewRolloverProcessor creates a processor. events may be nil, in which case
// no sync messages are published.
func NewRolloverProcessor(store BillStore, events EventPublisher) *RolloverProcessor {
	return &RolloverProcessor{
		store:  store,
		events: events,
	}
}

// Rollover replaces one overdue bill with its next occurrence and returns the
// new record.
//
// The next due date is anchored on now, the processing date, not on the
// bill's own due date: a bill overdue for several periods advances by exactly
// one period per run. An unpaid bill carries its amount forward doubled; a
// paid one keeps it unchanged. The replacement starts as due with no forward
// pointer, so it is not picked up again until one is set.
func (p *RolloverProcessor) Rollover(ctx context.Context, bill core.Bill, now time.Time) (core.Bill, error) {
	newDueDate, err := core.NextDueDate(bill.Frequency, now)
	if err != nil {
		return core.Bill{}, fmt.Errorf("compute next due date for bill %s: %w", bill.ID, err)
	}

	newAmount := bill.Amount
	if bill.Status != core.StatusPaid {
		newAmount = core.Money{Cents: bill.Amount.Cents * 2}
	}

	repl := core.Bill{
		Owner:     bill.Owner,
		Name:      bill.Name,
		Category:  bill.Category,
		Amount:    newAmount,
		Frequency: bill.Frequency,
		Status:    core.StatusDue,
		DueDate:   newDueDate,
	}

	if err := p.store.ReplaceBill(ctx, bill, &repl); err != nil {
		return core.Bill{}, fmt.Errorf("replace bill %s: %w", bill.ID, err)
	}

	if p.events != nil {
		if err := p.events.PublishBillSync(ctx, repl.ID, repl.Version); err != nil {
			// Store is the source of truth; the ledger catches up later.
			slog.ErrorContext(ctx, "Failed to publish rollover sync message",
				"id", repl.ID,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Rolled over bill",
		"old_id", bill.ID,
		"new_id", repl.ID,
		"owner", bill.Owner,
		"name", bill.Name,
		"was_paid", bill.Status == core.StatusPaid,
		"amount_cents", repl.Amount.Cents,
		"due_date", newDueDate.Format("2006-01-02"))

	return repl, nil
}
