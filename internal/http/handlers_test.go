package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"bollette/internal/core"
	"bollette/internal/services"
	"bollette/internal/storage"
)

// memStore is an in-memory BillStore for handler tests.
type memStore struct {
	mu     sync.Mutex
	bills  map[string]core.Bill
	nextID int
}

func newMemStore() *memStore {
	return &memStore{bills: make(map[string]core.Bill)}
}

func (s *memStore) CreateBill(_ context.Context, b *core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = fmt.Sprintf("bill-%d", s.nextID)
	b.Version = 1
	s.bills[b.ID] = *b
	return nil
}

func (s *memStore) GetBill(_ context.Context, owner, id string) (*core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok || b.Owner != owner {
		return nil, storage.ErrNotFound
	}
	copy := b
	return &copy, nil
}

func (s *memStore) ListBills(_ context.Context, f core.BillFilter) ([]core.Bill, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Bill
	for _, b := range s.bills {
		if b.Owner != f.Owner {
			continue
		}
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *memStore) ListDueBills(_ context.Context, _ time.Time) ([]core.Bill, error) {
	return nil, nil
}

func (s *memStore) UpdateBill(_ context.Context, b *core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bills[b.ID]
	if !ok || cur.Owner != b.Owner {
		return storage.ErrNotFound
	}
	if cur.Version != b.Version {
		return storage.ErrConflict
	}
	b.Version++
	s.bills[b.ID] = *b
	return nil
}

func (s *memStore) DeleteBill(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok || b.Owner != owner {
		return storage.ErrNotFound
	}
	delete(s.bills, id)
	return nil
}

func (s *memStore) ReplaceBill(_ context.Context, old core.Bill, repl *core.Bill) error {
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(":0", services.NewBillService(newMemStore(), nil))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func doRequest(t *testing.T, srv *Server, method, target, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if owner != "" {
		req.Header.Set("X-Owner", owner)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

type apiResponse struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func createRent(t *testing.T, srv *Server, owner string) billPayload {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/api/bills", owner,
		`{"name":"Rent","category":"Bills","amount":"100.00","frequency":"monthly","due_date":"2024-02-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bill status = %d, body %s", rec.Code, rec.Body.String())
	}
	var bill billPayload
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &bill); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	return bill
}

func TestCreateBill(t *testing.T) {
	srv := newTestServer(t)

	bill := createRent(t, srv, "user-1")
	if bill.ID == "" {
		t.Error("created bill has no id")
	}
	if bill.AmountCents != 10000 || bill.Amount != "100.00" {
		t.Errorf("amount = %s (%d cents), want 100.00", bill.Amount, bill.AmountCents)
	}
	if bill.Status != "due" {
		t.Errorf("status = %q, want due", bill.Status)
	}
	if bill.NextDueDate != "2024-03-01" {
		t.Errorf("next_due_date = %q, want 2024-03-01", bill.NextDueDate)
	}
}

func TestCreateBill_missingOwner(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/bills", "",
		`{"name":"Rent","category":"Bills","amount":"100.00","frequency":"monthly","due_date":"2024-02-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing X-Owner", rec.Code)
	}
}

func TestCreateBill_invalidInput(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad amount", `{"name":"Rent","category":"Bills","amount":"abc","frequency":"monthly","due_date":"2024-02-01"}`},
		{"bad date", `{"name":"Rent","category":"Bills","amount":"1.00","frequency":"monthly","due_date":"February 1"}`},
		{"bad frequency", `{"name":"Rent","category":"Bills","amount":"1.00","frequency":"daily","due_date":"2024-02-01"}`},
		{"bad category", `{"name":"Rent","category":"Misc","amount":"1.00","frequency":"monthly","due_date":"2024-02-01"}`},
		{"empty name", `{"name":"","category":"Bills","amount":"1.00","frequency":"monthly","due_date":"2024-02-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/bills", "user-1", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetBill(t *testing.T) {
	srv := newTestServer(t)
	created := createRent(t, srv, "user-1")

	rec := doRequest(t, srv, http.MethodGet, "/api/bills/"+created.ID, "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bills/"+created.ID, "someone-else", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for foreign owner", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bills/nope", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown id", rec.Code)
	}
}

func TestListBills(t *testing.T) {
	srv := newTestServer(t)
	createRent(t, srv, "user-1")

	rec := doRequest(t, srv, http.MethodPost, "/api/bills", "user-1",
		`{"name":"Gym","category":"Lifestyle","amount":"25.00","frequency":"weekly","due_date":"2024-02-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create second bill status = %d", rec.Code)
	}

	var list struct {
		Bills []billPayload `json:"bills"`
		Total int           `json:"total"`
		Page  int           `json:"page"`
		Limit int           `json:"limit"`
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bills", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 2 || len(list.Bills) != 2 {
		t.Errorf("list = %d bills, total %d, want 2/2", len(list.Bills), list.Total)
	}
	if list.Page != 1 || list.Limit != 20 {
		t.Errorf("page/limit = %d/%d, want defaults 1/20", list.Page, list.Limit)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bills?category=Lifestyle", "user-1", "")
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &list); err != nil {
		t.Fatalf("decode filtered list: %v", err)
	}
	if list.Total != 1 || list.Bills[0].Name != "Gym" {
		t.Errorf("filtered list = %+v, want just Gym", list.Bills)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bills?sort=color", "user-1", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for unknown sort key", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bills", "user-2", "")
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &list); err != nil {
		t.Fatalf("decode other owner list: %v", err)
	}
	if list.Total != 0 {
		t.Errorf("other owner sees %d bills, want 0", list.Total)
	}
}

func TestListBills_cacheInvalidatedByWrite(t *testing.T) {
	srv := newTestServer(t)
	createRent(t, srv, "user-1")

	// Prime the cache.
	doRequest(t, srv, http.MethodGet, "/api/bills", "user-1", "")

	createRent(t, srv, "user-1")

	var list struct {
		Total int `json:"total"`
	}
	rec := doRequest(t, srv, http.MethodGet, "/api/bills", "user-1", "")
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 2 {
		t.Errorf("total = %d after write, want 2 (stale cache served)", list.Total)
	}
}

func TestUpdateBill(t *testing.T) {
	srv := newTestServer(t)
	created := createRent(t, srv, "user-1")

	rec := doRequest(t, srv, http.MethodPut, "/api/bills/"+created.ID, "user-1", `{"status":"paid"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var bill billPayload
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &bill); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	if bill.Status != "paid" {
		t.Errorf("status = %q, want paid", bill.Status)
	}
	if bill.Version != created.Version+1 {
		t.Errorf("version = %d, want %d", bill.Version, created.Version+1)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/bills/"+created.ID, "user-1", `{"status":"late"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for unknown status", rec.Code)
	}
}

func TestDeleteBill(t *testing.T) {
	srv := newTestServer(t)
	created := createRent(t, srv, "user-1")

	rec := doRequest(t, srv, http.MethodDelete, "/api/bills/"+created.ID, "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bills/"+created.ID, "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d after delete, want 404", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}
