package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly  Frequency = "monthly"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
)

const (
	StatusDue  Status = "due"
	StatusPaid Status = "paid"
)

type (
	Frequency string

	Status string

	Category string

	Money struct {
		Cents int64
	}

	// Bill is one occurrence of a recurring obligation. The rollover process
	// never mutates DueDate in place: advancing a bill replaces the whole
	// record with a new one.
	Bill struct {
		ID        string
		Owner     string
		Name      string
		Category  Category
		Amount    Money
		Frequency Frequency
		Status    Status
		DueDate   time.Time
		// NextDueDate is the forward pointer used by the sweep to select
		// overdue bills. The zero value means "never selected". Records
		// created by a rollover leave it unset.
		NextDueDate time.Time
		// Version is the storage concurrency token. User edits increment it;
		// the rollover delete is conditional on it.
		Version int64
	}
)

// Categories is the closed set of bill category labels.
var Categories = []Category{
	"General",
	"Bills",
	"Groceries",
	"Dining Out",
	"Transportation",
	"Entertainment",
	"Personal Care",
	"Education",
	"Lifestyle",
	"Shopping",
}

var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty bill name")
	ErrEmptyOwner       = errors.New("empty owner")
	ErrInvalidDueDate   = errors.New("invalid due date")
	ErrInvalidSort      = errors.New("invalid sort key")
)

// ParseFrequency validates a raw frequency value at the boundary.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

func (f Frequency) Validate() error {
	switch f {
	case Monthly, Weekly, Biweekly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
	}
}

// ParseStatus validates a raw status value at the boundary.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if err := st.Validate(); err != nil {
		return "", err
	}
	return st, nil
}

func (s Status) Validate() error {
	switch s {
	case StatusDue, StatusPaid:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
}

// ParseCategory validates a raw category label at the boundary.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (c Category) Validate() error {
	for _, known := range Categories {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return ErrEmptyOwner
	}
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("bill name too long (max 200 characters)")
	}
	if err := b.Category.Validate(); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.Frequency.Validate(); err != nil {
		return err
	}
	if err := b.Status.Validate(); err != nil {
		return err
	}
	if b.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if !b.NextDueDate.IsZero() && !b.NextDueDate.After(b.DueDate) {
		return fmt.Errorf("%w: next due date must be after due date", ErrInvalidDueDate)
	}
	return nil
}
