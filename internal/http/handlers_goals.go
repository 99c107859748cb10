package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bolso/internal/core"
	"bolso/internal/store"
)

type goalRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	TargetDate    string  `json:"target_date"`
}

type goalResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	TargetDate    string  `json:"target_date"`
}

func toGoalResponse(g core.Goal) goalResponse {
	return goalResponse{
		ID:            g.ID,
		Title:         g.Title,
		Description:   g.Description,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		TargetDate:    g.TargetDate.Format(core.DateLayout),
	}
}

func (req goalRequest) toGoal(ownerID, id string) (core.Goal, error) {
	date, err := time.Parse(core.DateLayout, req.TargetDate)
	if err != nil {
		return core.Goal{}, core.ErrInvalidDate
	}
	g := core.Goal{
		ID:            id,
		OwnerID:       ownerID,
		Title:         sanitizeInput(req.Title),
		Description:   sanitizeInput(req.Description),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    date,
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	ownerID := s.identity.OwnerID(r)
	if ownerID == "" {
		UnauthorizedError("authentication required").Write(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		goals, err := s.goals.ListGoals(r.Context(), ownerID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed listing goals", "error", err, "owner_id", ownerID)
			InternalServerError("could not list goals").Write(w)
			return
		}
		resp := make([]goalResponse, 0, len(goals))
		for _, g := range goals {
			resp = append(resp, toGoalResponse(g))
		}
		NewJSONResponse().Body(resp).Write(w)

	case http.MethodPost:
		var req goalRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			BadRequestError("invalid request body").Write(w)
			return
		}
		g, err := req.toGoal(ownerID, "")
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		created, err := s.goals.CreateGoal(r.Context(), g)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed creating goal", "error", err, "owner_id", ownerID)
			InternalServerError("could not create goal").Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Body(toGoalResponse(created)).Write(w)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleGoalByID(w http.ResponseWriter, r *http.Request) {
	ownerID := s.identity.OwnerID(r)
	if ownerID == "" {
		UnauthorizedError("authentication required").Write(w)
		return
	}

	id := pathID(r, "/api/goals/")
	if id == "" {
		NotFoundError("goal not found").Write(w)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req goalRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			BadRequestError("invalid request body").Write(w)
			return
		}
		g, err := req.toGoal(ownerID, id)
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		updated, err := s.goals.UpdateGoal(r.Context(), g)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFoundError("goal not found").Write(w)
				return
			}
			slog.ErrorContext(r.Context(), "Failed updating goal", "error", err, "owner_id", ownerID, "goal_id", id)
			InternalServerError("could not update goal").Write(w)
			return
		}
		NewJSONResponse().Body(toGoalResponse(updated)).Write(w)

	case http.MethodDelete:
		if err := s.goals.DeleteGoal(r.Context(), ownerID, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFoundError("goal not found").Write(w)
				return
			}
			slog.ErrorContext(r.Context(), "Failed deleting goal", "error", err, "owner_id", ownerID, "goal_id", id)
			InternalServerError("could not delete goal").Write(w)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		MethodNotAllowedError("PUT, DELETE").Write(w)
	}
}
