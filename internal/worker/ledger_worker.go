package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bollette/internal/amqp"
	"bollette/internal/core"
	"bollette/internal/sheets"
)

// BillGetter is the slice of the store the worker needs. Sync messages carry
// only an ID, so the worker looks the bill up across owners.
type BillGetter interface {
	GetBillByID(ctx context.Context, id string) (*core.Bill, error)
}

// LedgerWorker mirrors bill events from the bus into the external ledger.
type LedgerWorker struct {
	store  BillGetter
	ledger sheets.BillWriter
}

func NewLedgerWorker(store BillGetter, ledger sheets.BillWriter) *LedgerWorker {
	return &LedgerWorker{store: store, ledger: ledger}
}

// HandleSyncMessage fetches the bill the message points at and appends a
// snapshot row. Returning an error requeues the message.
func (w *LedgerWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BillEventMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	bill, err := w.store.GetBillByID(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get bill from storage: %w", err)
	}

	ref, err := w.ledger.Append(ctx, sheets.LedgerEntry{
		When:        time.Now().UTC(),
		BillID:      bill.ID,
		Owner:       bill.Owner,
		Name:        bill.Name,
		Category:    string(bill.Category),
		AmountCents: bill.Amount.Cents,
		Status:      string(bill.Status),
		Event:       amqp.TypeSync,
	})
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored bill to ledger",
		"id", bill.ID,
		"ledger_ref", ref,
		"name", bill.Name,
		"amount_cents", bill.Amount.Cents)

	return nil
}

// HandleDeleteMessage appends a tombstone row. The record no longer exists
// in the store, so the row carries only the ID.
func (w *LedgerWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.BillEventMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	ref, err := w.ledger.Append(ctx, sheets.LedgerEntry{
		When:   time.Now().UTC(),
		BillID: msg.ID,
		Event:  "deleted",
	})
	if err != nil {
		return fmt.Errorf("append tombstone to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Recorded bill deletion in ledger",
		"id", msg.ID,
		"ledger_ref", ref)

	return nil
}
