package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bolso/internal/auth"
	"bolso/internal/cache"
	"bolso/internal/core"
	"bolso/internal/services"
	"bolso/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	return newTestServerWithConfig(t, Config{Addr: ":0"})
}

func newTestServerWithConfig(t *testing.T, cfg Config) (*Server, *memory.Store) {
	t.Helper()

	st := memory.New()
	c := cache.NewTTLCache[[]core.Transaction](5*time.Minute, 100)
	svc := services.NewTransactionService(st, c, services.TransactionServiceConfig{})
	s, err := NewServer(cfg, svc, st, auth.NewHeaderIdentity(""))
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})

	return s, st
}

func doRequest(s *Server, method, path, owner string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if owner != "" {
		req.Header.Set(auth.DefaultOwnerHeader, owner)
	}

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/transactions", "u1", nil)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestListTransactionsUnauthenticatedReturnsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/transactions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp transactionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 0 || len(resp.Transactions) != 0 {
		t.Errorf("unauthenticated list should be empty, got count=%d", resp.Count)
	}
	if resp.Transactions == nil {
		t.Error("transactions array should be present, not null")
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	s, _ := newTestServer(t)

	payload := []byte(`{"description":"Salary","amount":5000,"kind":"income","category":"Work","date":"2025-08-01"}`)
	rec := doRequest(s, http.MethodPost, "/api/transactions", "u1", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var created transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.ID == "" {
		t.Error("created transaction has no id")
	}

	rec = doRequest(s, http.MethodGet, "/api/transactions", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	var list transactionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("list count = %d, want 1", list.Count)
	}
	if list.Transactions[0].Description != "Salary" {
		t.Errorf("description = %q, want Salary", list.Transactions[0].Description)
	}
}

func TestCreateTransactionRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t)

	payload := []byte(`{"description":"Rent","amount":-1200,"kind":"expense","category":"Housing","date":"2025-08-05"}`)
	rec := doRequest(s, http.MethodPost, "/api/transactions", "", payload)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCreateTransactionRejectsInvalidPayload(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name    string
		payload string
		status  int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"unknown field", `{"description":"x","amount":1,"kind":"income","category":"c","date":"2025-08-01","bogus":true}`, http.StatusBadRequest},
		{"empty description", `{"description":"","amount":1,"kind":"income","category":"c","date":"2025-08-01"}`, http.StatusUnprocessableEntity},
		{"bad kind", `{"description":"x","amount":1,"kind":"loan","category":"c","date":"2025-08-01"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"description":"x","amount":1,"kind":"income","category":"c","date":"soon"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/transactions", "u1", []byte(tt.payload))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	s, st := newTestServer(t)

	tx, err := st.CreateTransaction(context.Background(), core.Transaction{
		OwnerID: "u1", Description: "Groceries", Amount: -80, Kind: core.KindExpense,
		Category: "Food", Date: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	payload := []byte(`{"description":"Groceries and household","amount":-95,"kind":"expense","category":"Food","date":"2025-08-10"}`)
	rec := doRequest(s, http.MethodPut, "/api/transactions/"+tx.ID, "u1", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = doRequest(s, http.MethodDelete, "/api/transactions/"+tx.ID, "u1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = doRequest(s, http.MethodDelete, "/api/transactions/"+tx.ID, "u1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMutationInvalidatesCachedList(t *testing.T) {
	s, _ := newTestServer(t)

	payload := []byte(`{"description":"Salary","amount":5000,"kind":"income","category":"Work","date":"2025-08-01"}`)
	if rec := doRequest(s, http.MethodPost, "/api/transactions", "u1", payload); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	// Prime the cache.
	doRequest(s, http.MethodGet, "/api/transactions", "u1", nil)

	payload = []byte(`{"description":"Bonus","amount":500,"kind":"income","category":"Work","date":"2025-08-15"}`)
	if rec := doRequest(s, http.MethodPost, "/api/transactions", "u1", payload); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doRequest(s, http.MethodGet, "/api/transactions", "u1", nil)
	var list transactionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if list.Count != 2 {
		t.Errorf("list count after second create = %d, want 2 (stale cache served)", list.Count)
	}
}

func TestDashboardStats(t *testing.T) {
	s, st := newTestServer(t)

	now := time.Now().UTC()
	seed := []core.Transaction{
		{OwnerID: "u1", Description: "Salary", Amount: 5000, Kind: core.KindIncome, Category: "Work", Date: now},
		{OwnerID: "u1", Description: "Rent", Amount: -1200, Kind: core.KindExpense, Category: "Housing", Date: now},
		{OwnerID: "u1", Description: "Utilities", Amount: -300, Kind: core.KindExpense, Category: "Bills", Date: now},
	}
	for _, tx := range seed {
		if _, err := st.CreateTransaction(context.Background(), tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := doRequest(s, http.MethodGet, "/api/dashboard", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.MonthlyIncome != 5000 {
		t.Errorf("monthly income = %v, want 5000", resp.MonthlyIncome)
	}
	if resp.MonthlyExpenses != 1500 {
		t.Errorf("monthly expenses = %v, want 1500", resp.MonthlyExpenses)
	}
	if resp.TotalBalance != 3500 {
		t.Errorf("total balance = %v, want 3500", resp.TotalBalance)
	}
	if resp.TotalCount != 3 {
		t.Errorf("total count = %d, want 3", resp.TotalCount)
	}
}

func TestAccountsCRUD(t *testing.T) {
	s, _ := newTestServer(t)

	payload := []byte(`{"name":"Main checking","type":"checking","balance":1500}`)
	rec := doRequest(s, http.MethodPost, "/api/accounts", "u1", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var created accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = doRequest(s, http.MethodGet, "/api/accounts", "u1", nil)
	var accounts []accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &accounts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "Main checking" {
		t.Fatalf("accounts = %+v, want one named Main checking", accounts)
	}

	rec = doRequest(s, http.MethodDelete, "/api/accounts/"+created.ID, "u1", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestGoalsValidation(t *testing.T) {
	s, _ := newTestServer(t)

	payload := []byte(`{"title":"Emergency fund","target_amount":0,"current_amount":0,"target_date":"2026-06-01"}`)
	rec := doRequest(s, http.MethodPost, "/api/goals", "u1", payload)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	payload = []byte(`{"title":"Emergency fund","target_amount":10000,"current_amount":2500,"target_date":"2026-06-01"}`)
	rec = doRequest(s, http.MethodPost, "/api/goals", "u1", payload)
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPatch, "/api/transactions", "u1", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if got := rec.Header().Get("Allow"); got != "GET, POST" {
		t.Errorf("Allow = %q, want \"GET, POST\"", got)
	}
}

func TestRateLimitUsesJSONEnvelope(t *testing.T) {
	s, _ := newTestServerWithConfig(t, Config{Addr: ":0", RateLimitPerMinute: 2})

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec = doRequest(s, http.MethodGet, "/healthz", "", nil)
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want \"60\"", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want JSON", got)
	}

	var resp errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp.Error != "rate limit exceeded" {
		t.Errorf("error = %q, want \"rate limit exceeded\"", resp.Error)
	}
}

func TestNewServerRejectsBadTrustedProxy(t *testing.T) {
	st := memory.New()
	c := cache.NewTTLCache[[]core.Transaction](5*time.Minute, 100)
	svc := services.NewTransactionService(st, c, services.TransactionServiceConfig{})

	_, err := NewServer(Config{Addr: ":0", TrustedProxies: []string{"not-a-cidr"}}, svc, st, auth.NewHeaderIdentity(""))
	if err == nil {
		t.Fatal("NewServer() should reject an unparseable trusted proxy CIDR")
	}
}
