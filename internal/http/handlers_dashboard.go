package http

import (
	"net/http"

	"bolso/internal/services"
)

type dashboardResponse struct {
	TotalBalance        float64               `json:"total_balance"`
	MonthlyIncome       float64               `json:"monthly_income"`
	MonthlyExpenses     float64               `json:"monthly_expenses"`
	MonthlyTransactions []transactionResponse `json:"monthly_transactions"`
	TotalCount          int                   `json:"total_count"`
}

// handleDashboard serves the derived stats for the current month. The figures
// come from the same cached list the transactions endpoint serves, so the two
// views never disagree within a cache window.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	scope := services.Scope{
		OwnerID: s.identity.OwnerID(r),
		Limit:   parseLimit(r),
	}

	stats := s.transactions.Stats(r.Context(), scope)

	resp := dashboardResponse{
		TotalBalance:        stats.TotalBalance,
		MonthlyIncome:       stats.MonthlyIncome,
		MonthlyExpenses:     stats.MonthlyExpenses,
		MonthlyTransactions: make([]transactionResponse, 0, len(stats.MonthlyTransactions)),
		TotalCount:          stats.TotalCount,
	}
	for _, tx := range stats.MonthlyTransactions {
		resp.MonthlyTransactions = append(resp.MonthlyTransactions, toTransactionResponse(tx))
	}

	NewJSONResponse().Body(resp).Write(w)
}
