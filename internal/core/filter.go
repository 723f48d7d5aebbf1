package core

// BillFilter narrows and orders a bill listing. Zero-valued fields are
// ignored. All listings are scoped to Owner.
type BillFilter struct {
	Owner    string
	Category Category
	Status   Status
	// SortBy is one of "name", "due_date", "amount"; empty means "due_date".
	SortBy string
	// SortDesc reverses the sort order.
	SortDesc bool
	// Page is 1-based; Limit caps the page size.
	Page  int
	Limit int
}

const (
	SortByName    = "name"
	SortByDueDate = "due_date"
	SortByAmount  = "amount"

	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize fills defaults and rejects unknown sort keys.
func (f BillFilter) Normalize() (BillFilter, error) {
	if f.Owner == "" {
		return f, ErrEmptyOwner
	}
	if f.Category != "" {
		if err := f.Category.Validate(); err != nil {
			return f, err
		}
	}
	if f.Status != "" {
		if err := f.Status.Validate(); err != nil {
			return f, err
		}
	}
	switch f.SortBy {
	case "":
		f.SortBy = SortByDueDate
	case SortByName, SortByDueDate, SortByAmount:
	default:
		return f, ErrInvalidSort
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f, nil
}
