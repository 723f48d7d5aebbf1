package memory

import (
	"context"
	"testing"
	"time"

	"bollette/internal/sheets"
)

func TestAppendAndEntries(t *testing.T) {
	store := New()

	ref, err := store.Append(context.Background(), sheets.LedgerEntry{
		When:        time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC),
		BillID:      "bill-1",
		Owner:       "user-1",
		Name:        "Rent",
		Category:    "Bills",
		AmountCents: 10000,
		Status:      "due",
		Event:       "sync",
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("row ref = %q, want mem:1", ref)
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].BillID != "bill-1" || entries[0].AmountCents != 10000 {
		t.Errorf("stored entry = %+v", entries[0])
	}
}

func TestAppendRejectsMissingID(t *testing.T) {
	if _, err := New().Append(context.Background(), sheets.LedgerEntry{Name: "Rent"}); err == nil {
		t.Error("Append() error = nil, want error for missing bill id")
	}
}
