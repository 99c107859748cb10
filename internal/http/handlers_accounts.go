package http

import (
	"errors"
	"log/slog"
	"net/http"

	"bolso/internal/core"
	"bolso/internal/store"
)

type accountRequest struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

type accountResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

func toAccountResponse(acc core.Account) accountResponse {
	return accountResponse{
		ID:      acc.ID,
		Name:    acc.Name,
		Type:    string(acc.Type),
		Balance: acc.Balance,
	}
}

func (req accountRequest) toAccount(ownerID, id string) (core.Account, error) {
	acc := core.Account{
		ID:      id,
		OwnerID: ownerID,
		Name:    sanitizeInput(req.Name),
		Type:    core.AccountType(req.Type),
		Balance: req.Balance,
	}
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	return acc, nil
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID := s.identity.OwnerID(r)
	if ownerID == "" {
		UnauthorizedError("authentication required").Write(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		accounts, err := s.accounts.ListAccounts(r.Context(), ownerID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed listing accounts", "error", err, "owner_id", ownerID)
			InternalServerError("could not list accounts").Write(w)
			return
		}
		resp := make([]accountResponse, 0, len(accounts))
		for _, acc := range accounts {
			resp = append(resp, toAccountResponse(acc))
		}
		NewJSONResponse().Body(resp).Write(w)

	case http.MethodPost:
		var req accountRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			BadRequestError("invalid request body").Write(w)
			return
		}
		acc, err := req.toAccount(ownerID, "")
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		created, err := s.accounts.CreateAccount(r.Context(), acc)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed creating account", "error", err, "owner_id", ownerID)
			InternalServerError("could not create account").Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Body(toAccountResponse(created)).Write(w)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleAccountByID(w http.ResponseWriter, r *http.Request) {
	ownerID := s.identity.OwnerID(r)
	if ownerID == "" {
		UnauthorizedError("authentication required").Write(w)
		return
	}

	id := pathID(r, "/api/accounts/")
	if id == "" {
		NotFoundError("account not found").Write(w)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req accountRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			BadRequestError("invalid request body").Write(w)
			return
		}
		acc, err := req.toAccount(ownerID, id)
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		updated, err := s.accounts.UpdateAccount(r.Context(), acc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFoundError("account not found").Write(w)
				return
			}
			slog.ErrorContext(r.Context(), "Failed updating account", "error", err, "owner_id", ownerID, "account_id", id)
			InternalServerError("could not update account").Write(w)
			return
		}
		NewJSONResponse().Body(toAccountResponse(updated)).Write(w)

	case http.MethodDelete:
		if err := s.accounts.DeleteAccount(r.Context(), ownerID, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFoundError("account not found").Write(w)
				return
			}
			slog.ErrorContext(r.Context(), "Failed deleting account", "error", err, "owner_id", ownerID, "account_id", id)
			InternalServerError("could not delete account").Write(w)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		MethodNotAllowedError("PUT, DELETE").Write(w)
	}
}
