package core

import (
	"math"
	"time"
)

// DerivedStats holds the dashboard aggregates recomputed from the current
// transaction set. It is a value, never persisted.
type DerivedStats struct {
	TotalBalance        float64
	MonthlyIncome       float64
	MonthlyExpenses     float64
	MonthlyTransactions []Transaction
	TotalCount          int
}

// ComputeStats derives dashboard figures from records at the given reference
// time. The monthly partition matches ref's calendar month and year. Income
// adds to the balance, expenses subtract their absolute value, and transfers
// are net-zero here: they contribute to neither income, expenses, nor the
// balance. The input slice is not mutated.
func ComputeStats(records []Transaction, ref time.Time) DerivedStats {
	stats := DerivedStats{TotalCount: len(records)}

	refYear, refMonth, _ := ref.Date()

	for _, tx := range records {
		year, month, _ := tx.Date.Date()
		thisMonth := year == refYear && month == refMonth

		switch tx.Kind {
		case KindIncome:
			stats.TotalBalance += tx.Amount
			if thisMonth {
				stats.MonthlyIncome += tx.Amount
			}
		case KindExpense:
			stats.TotalBalance -= math.Abs(tx.Amount)
			if thisMonth {
				stats.MonthlyExpenses += math.Abs(tx.Amount)
			}
		}

		if thisMonth {
			stats.MonthlyTransactions = append(stats.MonthlyTransactions, tx)
		}
	}

	return stats
}
