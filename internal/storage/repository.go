package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bollette/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no bill matches the given id and owner.
	ErrNotFound = errors.New("bill not found")
	// ErrConflict is returned when a conditional write loses against a
	// concurrent edit (version mismatch).
	ErrConflict = errors.New("bill was modified concurrently")
)

// timeLayout is fixed-width RFC3339 in UTC so that lexicographic comparison
// in SQL matches chronological order.
const timeLayout = time.RFC3339

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const billColumns = "id, owner, name, category, amount_cents, frequency, status, due_date, next_due_date, version"

// CreateBill inserts a new bill and populates its ID and Version.
func (r *SQLiteRepository) CreateBill(ctx context.Context, b *core.Bill) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.Version = 1

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Owner, b.Name, string(b.Category), b.Amount.Cents, string(b.Frequency),
		string(b.Status), encodeTime(b.DueDate), encodeNullTime(b.NextDueDate), b.Version)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved to SQLite",
		"id", b.ID,
		"owner", b.Owner,
		"name", b.Name,
		"amount_cents", b.Amount.Cents,
		"frequency", b.Frequency)

	return nil
}

// GetBill retrieves one bill scoped to its owner.
func (r *SQLiteRepository) GetBill(ctx context.Context, owner, id string) (*core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ? AND owner = ?`, id, owner)
	return scanBill(row)
}

// GetBillByID retrieves a bill regardless of owner. Used by the ledger worker,
// which processes events for all owners.
func (r *SQLiteRepository) GetBillByID(ctx context.Context, id string) (*core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	return scanBill(row)
}

// ListBills returns one page of an owner's bills plus the unpaginated total.
// The filter must already be normalized.
func (r *SQLiteRepository) ListBills(ctx context.Context, f core.BillFilter) ([]core.Bill, int, error) {
	where := "WHERE owner = ?"
	args := []any{f.Owner}
	if f.Category != "" {
		where += " AND category = ?"
		args = append(args, string(f.Category))
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, string(f.Status))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bills "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bills: %w", err)
	}

	order := sortColumn(f.SortBy)
	if f.SortDesc {
		order += " DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM bills %s ORDER BY %s LIMIT ? OFFSET ?", billColumns, where, order)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	bills, err := collectBills(rows)
	if err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

// sortColumn maps a normalized filter sort key to its column. The filter keys
// form a closed set, so no raw user input reaches the query.
func sortColumn(sortBy string) string {
	if sortBy == core.SortByAmount {
		return "amount_cents"
	}
	return sortBy
}

// ListDueBills returns every bill, across all owners, whose next due date has
// passed. Bills without a next due date are never selected.
func (r *SQLiteRepository) ListDueBills(ctx context.Context, now time.Time) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE next_due_date IS NOT NULL AND next_due_date <= ?`,
		encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("list due bills: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// UpdateBill writes the given bill state conditional on its Version, which is
// incremented on success. A concurrent edit surfaces as ErrConflict.
func (r *SQLiteRepository) UpdateBill(ctx context.Context, b *core.Bill) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills
		 SET name = ?, category = ?, amount_cents = ?, frequency = ?, status = ?,
		     due_date = ?, next_due_date = ?, version = version + 1,
		     updated_at = ?
		 WHERE id = ? AND owner = ? AND version = ?`,
		b.Name, string(b.Category), b.Amount.Cents, string(b.Frequency), string(b.Status),
		encodeTime(b.DueDate), encodeNullTime(b.NextDueDate), encodeTime(time.Now()),
		b.ID, b.Owner, b.Version)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bill rows affected: %w", err)
	}
	if affected == 0 {
		return r.missReason(ctx, b.ID)
	}

	b.Version++
	return nil
}

// DeleteBill removes an owner's bill.
func (r *SQLiteRepository) DeleteBill(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bill rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceBill atomically swaps an old bill occurrence for its replacement:
// the new record is inserted and the old one deleted in one transaction, so
// the occurrence is never lost. The delete is conditional on old.Version; a
// concurrent user edit makes the whole swap fail with ErrConflict.
func (r *SQLiteRepository) ReplaceBill(ctx context.Context, old core.Bill, repl *core.Bill) error {
	if repl.ID == "" {
		repl.ID = uuid.New().String()
	}
	repl.Version = 1

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		repl.ID, repl.Owner, repl.Name, string(repl.Category), repl.Amount.Cents,
		string(repl.Frequency), string(repl.Status), encodeTime(repl.DueDate),
		encodeNullTime(repl.NextDueDate), repl.Version)
	if err != nil {
		return fmt.Errorf("insert replacement bill: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM bills WHERE id = ? AND version = ?`, old.ID, old.Version)
	if err != nil {
		return fmt.Errorf("delete superseded bill: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete superseded bill rows affected: %w", err)
	}
	if affected == 0 {
		return r.missReason(ctx, old.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}

	slog.InfoContext(ctx, "Bill occurrence replaced",
		"old_id", old.ID,
		"new_id", repl.ID,
		"owner", repl.Owner,
		"due_date", repl.DueDate.Format(timeLayout))

	return nil
}

// missReason distinguishes a vanished row from a version conflict.
func (r *SQLiteRepository) missReason(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bills WHERE id = ?`, id).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("check bill existence: %w", err)
	default:
		return ErrConflict
	}
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeNullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return encodeTime(t)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*core.Bill, error) {
	var (
		b        core.Bill
		category, frequency, status string
		dueDate  string
		nextDue  sql.NullString
	)
	err := row.Scan(&b.ID, &b.Owner, &b.Name, &category, &b.Amount.Cents,
		&frequency, &status, &dueDate, &nextDue, &b.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bill: %w", err)
	}

	b.Category = core.Category(category)
	b.Frequency = core.Frequency(frequency)
	b.Status = core.Status(status)
	if b.DueDate, err = decodeTime(dueDate); err != nil {
		return nil, fmt.Errorf("decode due date: %w", err)
	}
	if nextDue.Valid {
		if b.NextDueDate, err = decodeTime(nextDue.String); err != nil {
			return nil, fmt.Errorf("decode next due date: %w", err)
		}
	}
	return &b, nil
}

func collectBills(rows *sql.Rows) ([]core.Bill, error) {
	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}
