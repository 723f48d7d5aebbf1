package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"bollette/internal/amqp"
	"bollette/internal/core"
	"bollette/internal/sheets/memory"
	"bollette/internal/storage"
)

type fakeGetter struct {
	bills map[string]core.Bill
}

func (f *fakeGetter) GetBillByID(_ context.Context, id string) (*core.Bill, error) {
	if b, ok := f.bills[id]; ok {
		return &b, nil
	}
	return nil, storage.ErrNotFound
}

func TestHandleSyncMessage(t *testing.T) {
	getter := &fakeGetter{bills: map[string]core.Bill{
		"bill-1": {
			ID: "bill-1", Owner: "user-1", Name: "Rent", Category: "Bills",
			Amount: core.Money{Cents: 10000}, Status: core.StatusDue,
			DueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}}
	ledger := memory.New()
	w := NewLedgerWorker(getter, ledger)

	if err := w.HandleSyncMessage(context.Background(), amqp.NewBillSyncMessage("bill-1", 1)); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	entries := ledger.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want 1", len(entries))
	}
	got := entries[0]
	if got.BillID != "bill-1" || got.Name != "Rent" || got.AmountCents != 10000 {
		t.Errorf("ledger entry = %+v", got)
	}
	if got.Event != amqp.TypeSync {
		t.Errorf("event = %q, want %q", got.Event, amqp.TypeSync)
	}
}

func TestHandleSyncMessage_missingBill(t *testing.T) {
	w := NewLedgerWorker(&fakeGetter{bills: map[string]core.Bill{}}, memory.New())

	err := w.HandleSyncMessage(context.Background(), amqp.NewBillSyncMessage("gone", 1))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("HandleSyncMessage() error = %v, want ErrNotFound", err)
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	ledger := memory.New()
	w := NewLedgerWorker(&fakeGetter{bills: map[string]core.Bill{}}, ledger)

	if err := w.HandleDeleteMessage(context.Background(), amqp.NewBillDeleteMessage("bill-9")); err != nil {
		t.Fatalf("HandleDeleteMessage() error = %v", err)
	}

	entries := ledger.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want 1", len(entries))
	}
	if entries[0].BillID != "bill-9" || entries[0].Event != "deleted" {
		t.Errorf("tombstone entry = %+v", entries[0])
	}
}
