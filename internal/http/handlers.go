package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bollette/internal/core"
	"bollette/internal/services"
	"bollette/internal/storage"
)

const dateLayout = "2006-01-02"

// billPayload is the JSON shape of a bill on the wire.
type billPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Frequency   string `json:"frequency"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date"`
	NextDueDate string `json:"next_due_date,omitempty"`
	Version     int64  `json:"version"`
}

func toPayload(b core.Bill) billPayload {
	p := billPayload{
		ID:          b.ID,
		Name:        b.Name,
		Category:    string(b.Category),
		Amount:      formatAmount(b.Amount.Cents),
		AmountCents: b.Amount.Cents,
		Frequency:   string(b.Frequency),
		Status:      string(b.Status),
		DueDate:     b.DueDate.Format(dateLayout),
		Version:     b.Version,
	}
	if !b.NextDueDate.IsZero() {
		p.NextDueDate = b.NextDueDate.Format(dateLayout)
	}
	return p
}

type createBillRequest struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Amount    string `json:"amount"`
	Frequency string `json:"frequency"`
	DueDate   string `json:"due_date"`
}

type updateBillRequest struct {
	Name      *string `json:"name"`
	Category  *string `json:"category"`
	Amount    *string `json:"amount"`
	Frequency *string `json:"frequency"`
	Status    *string `json:"status"`
	DueDate   *string `json:"due_date"`
}

// owner extracts the caller identity. Authentication proper is left to the
// proxy in front; the API trusts the X-Owner header.
func owner(r *http.Request) (string, *apiErr) {
	o := strings.TrimSpace(r.Header.Get("X-Owner"))
	if o == "" {
		return "", badRequest("missing X-Owner header", nil)
	}
	return o, nil
}

func mapServiceErr(err error) *apiErr {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFound("bill not found")
	case errors.Is(err, storage.ErrConflict):
		return conflict("bill was modified concurrently, retry")
	case errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyOwner),
		errors.Is(err, core.ErrInvalidDueDate),
		errors.Is(err, core.ErrInvalidSort):
		return unprocessable(err.Error())
	default:
		return serverError("internal error", err)
	}
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	own, aerr := owner(r)
	if aerr != nil {
		writeErr(w, aerr)
		return
	}

	var req createBillRequest
	if aerr := readJSON(r, &req); aerr != nil {
		writeErr(w, aerr)
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeErr(w, unprocessable("invalid amount: "+req.Amount))
		return
	}
	dueDate, err := time.ParseInLocation(dateLayout, req.DueDate, time.UTC)
	if err != nil {
		writeErr(w, unprocessable("due_date must be a YYYY-MM-DD date"))
		return
	}

	bill := core.Bill{
		Owner:     own,
		Name:      strings.TrimSpace(req.Name),
		Category:  core.Category(strings.TrimSpace(req.Category)),
		Amount:    core.Money{Cents: cents},
		Frequency: core.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency))),
		DueDate:   dueDate,
	}

	created, err := s.bills.CreateBill(r.Context(), bill)
	if err != nil {
		writeErr(w, mapServiceErr(err))
		return
	}

	s.invalidateOwner(own)
	slog.InfoContext(r.Context(), "Bill created",
		"bill_id", created.ID, "owner", own, "name", created.Name)
	writeOK(w, http.StatusCreated, toPayload(created))
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	own, aerr := owner(r)
	if aerr != nil {
		writeErr(w, aerr)
		return
	}

	bill, err := s.bills.GetBill(r.Context(), own, r.PathValue("id"))
	if err != nil {
		writeErr(w, mapServiceErr(err))
		return
	}
	writeOK(w, http.StatusOK, toPayload(*bill))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	own, aerr := owner(r)
	if aerr != nil {
		writeErr(w, aerr)
		return
	}

	q := r.URL.Query()
	filter := core.BillFilter{
		Owner:    own,
		Category: core.Category(strings.TrimSpace(q.Get("category"))),
		Status:   core.Status(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		SortBy:   strings.ToLower(strings.TrimSpace(q.Get("sort"))),
		SortDesc: q.Get("order") == "desc",
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	filter, err := filter.Normalize()
	if err != nil {
		writeErr(w, mapServiceErr(err))
		return
	}

	key := listCacheKey(filter)
	page, cached := s.listCache.Get(key)
	if !cached {
		bills, total, err := s.bills.ListBills(r.Context(), filter)
		if err != nil {
			writeErr(w, mapServiceErr(err))
			return
		}
		page = listPage{Bills: bills, Total: total}
		s.listCache.Set(key, page)
	}

	payloads := make([]billPayload, 0, len(page.Bills))
	for _, b := range page.Bills {
		payloads = append(payloads, toPayload(b))
	}
	writeOK(w, http.StatusOK, map[string]any{
		"bills": payloads,
		"total": page.Total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	own, aerr := owner(r)
	if aerr != nil {
		writeErr(w, aerr)
		return
	}

	var req updateBillRequest
	if aerr := readJSON(r, &req); aerr != nil {
		writeErr(w, aerr)
		return
	}

	var upd services.BillUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		upd.Name = &name
	}
	if req.Category != nil {
		cat := core.Category(strings.TrimSpace(*req.Category))
		upd.Category = &cat
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeErr(w, unprocessable("invalid amount: "+*req.Amount))
			return
		}
		upd.AmountCents = &cents
	}
	if req.Frequency != nil {
		freq := core.Frequency(strings.ToLower(strings.TrimSpace(*req.Frequency)))
		upd.Frequency = &freq
	}
	if req.Status != nil {
		status := core.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		upd.Status = &status
	}
	if req.DueDate != nil {
		dueDate, err := time.ParseInLocation(dateLayout, *req.DueDate, time.UTC)
		if err != nil {
			writeErr(w, unprocessable("due_date must be a YYYY-MM-DD date"))
			return
		}
		upd.DueDate = &dueDate
	}

	updated, err := s.bills.UpdateBill(r.Context(), own, r.PathValue("id"), upd)
	if err != nil {
		writeErr(w, mapServiceErr(err))
		return
	}

	s.invalidateOwner(own)
	writeOK(w, http.StatusOK, toPayload(*updated))
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	own, aerr := owner(r)
	if aerr != nil {
		writeErr(w, aerr)
		return
	}

	id := r.PathValue("id")
	if err := s.bills.DeleteBill(r.Context(), own, id); err != nil {
		writeErr(w, mapServiceErr(err))
		return
	}

	s.invalidateOwner(own)
	slog.InfoContext(r.Context(), "Bill deleted", "bill_id", id, "owner", own)
	writeOK(w, http.StatusOK, map[string]string{"id": id})
}

func formatAmount(cents int64) string {
	neg := ""
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", neg, cents/100, cents%100)
}

func listCacheKey(f core.BillFilter) string {
	return f.Owner + "|" + string(f.Category) + "|" + string(f.Status) + "|" +
		f.SortBy + "|" + strconv.FormatBool(f.SortDesc) + "|" +
		strconv.Itoa(f.Page) + "|" + strconv.Itoa(f.Limit)
}

// invalidateOwner drops every cached list page for the owner after a write.
func (s *Server) invalidateOwner(owner string) {
	s.listCache.DeletePrefix(owner + "|")
}
