package sheets

import (
	"context"
	"time"
)

// LedgerEntry is one row in the external bill ledger. Sync events carry the
// full bill snapshot; delete events carry a tombstone with Event "deleted".
type LedgerEntry struct {
	When        time.Time
	BillID      string
	Owner       string
	Name        string
	Category    string
	AmountCents int64
	Status      string
	Event       string
}

// Port for outbound ledger adapters.
type BillWriter interface {
	Append(ctx context.Context, e LedgerEntry) (rowRef string, err error)
}
