package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bolso/internal/core"
	applog "bolso/internal/log"
	"bolso/internal/services"
	"bolso/internal/store"
)

// transactionRequest is the write payload for create and update.
type transactionRequest struct {
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Kind        string   `json:"kind"`
	Category    string   `json:"category"`
	AccountRef  string   `json:"account_ref,omitempty"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags,omitempty"`
}

type transactionResponse struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Kind        string   `json:"kind"`
	Category    string   `json:"category"`
	AccountRef  string   `json:"account_ref,omitempty"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Count        int                   `json:"count"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount,
		Kind:        string(tx.Kind),
		Category:    tx.Category,
		AccountRef:  tx.AccountRef,
		Date:        tx.Date.Format(core.DateLayout),
		Tags:        tx.Tags,
	}
	if !tx.CreatedAt.IsZero() {
		resp.CreatedAt = tx.CreatedAt.Format(time.RFC3339)
	}
	if !tx.UpdatedAt.IsZero() {
		resp.UpdatedAt = tx.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

// toTransaction builds a domain record from the request payload. Validation
// happens through core so the API rejects exactly what the store would drop.
func (req transactionRequest) toTransaction(ownerID, id string) (core.Transaction, error) {
	date, err := time.Parse(core.DateLayout, req.Date)
	if err != nil {
		return core.Transaction{}, core.ErrInvalidDate
	}

	tx := core.Transaction{
		ID:          id,
		OwnerID:     ownerID,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Kind:        core.TransactionKind(req.Kind),
		Category:    sanitizeInput(req.Category),
		AccountRef:  sanitizeInput(req.AccountRef),
		Date:        date,
		Tags:        req.Tags,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// logChange records a successful mutation with the request-scoped logger.
func (s *Server) logChange(r *http.Request, op string, tx core.Transaction) {
	logger := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	logger.LogTransactionChange(r.Context(), op, tx.OwnerID, tx.ID, tx.Amount, string(tx.Kind), tx.Category)
}

// handleTransactions serves GET (cached list) and POST (create).
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	scope := services.Scope{
		OwnerID: s.identity.OwnerID(r),
		Limit:   parseLimit(r),
	}

	records := s.transactions.Fetch(r.Context(), scope)

	resp := transactionListResponse{
		Transactions: make([]transactionResponse, 0, len(records)),
		Count:        len(records),
	}
	for _, tx := range records {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx))
	}

	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := s.identity.OwnerID(r)
	if ownerID == "" {
		UnauthorizedError("authentication required").Write(w)
		return
	}

	var req transactionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tx, err := req.toTransaction(ownerID, "")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed creating transaction", "error", err, "owner_id", ownerID)
		InternalServerError("could not create transaction").Write(w)
		return
	}
	s.logChange(r, applog.OpCreate, created)

	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionResponse(created)).Write(w)
}

// handleTransactionByID serves PUT and DELETE on /api/transactions/<id>.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	ownerID := s.identity.OwnerID(r)
	if ownerID == "" {
		UnauthorizedError("authentication required").Write(w)
		return
	}

	id := pathID(r, "/api/transactions/")
	if id == "" {
		NotFoundError("transaction not found").Write(w)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateTransaction(w, r, ownerID, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, ownerID, id)
	default:
		MethodNotAllowedError("PUT, DELETE").Write(w)
	}
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, ownerID, id string) {
	var req transactionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tx, err := req.toTransaction(ownerID, id)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	updated, err := s.transactions.Update(r.Context(), tx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("transaction not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed updating transaction", "error", err, "owner_id", ownerID, "transaction_id", id)
		InternalServerError("could not update transaction").Write(w)
		return
	}
	s.logChange(r, applog.OpUpdate, updated)

	NewJSONResponse().Body(toTransactionResponse(updated)).Write(w)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, ownerID, id string) {
	if err := s.transactions.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("transaction not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed deleting transaction", "error", err, "owner_id", ownerID, "transaction_id", id)
		InternalServerError("could not delete transaction").Write(w)
		return
	}
	applog.FromContext(r.Context()).Info("Transaction change applied",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldOwnerID, ownerID,
		applog.FieldTransactionID, id)

	w.WriteHeader(http.StatusNoContent)
}
