package backend

import (
	"context"
	"fmt"
	"log/slog"

	"bollette/internal/sheets"
	gsheet "bollette/internal/sheets/google"
	"bollette/internal/sheets/memory"
)

// Type selects which ledger implementation the worker mirrors bills into.
type Type string

const (
	MemoryBackend Type = "memory"
	SheetsBackend Type = "sheets"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// NewLedger creates the configured ledger writer. The memory backend needs
// no configuration; the sheets backend reads its settings from the
// environment.
func NewLedger(ctx context.Context, t Type, logger *slog.Logger) (sheets.BillWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid ledger backend: %q", t)
	}

	switch t {
	case SheetsBackend:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets ledger: %w", err)
		}
		logger.Info("Initialized Google Sheets ledger")
		return cli, nil
	default:
		logger.Info("Initialized in-memory ledger")
		return memory.New(), nil
	}
}
