package core

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestComputeStats(t *testing.T) {
	ref := time.Date(2025, time.August, 20, 12, 0, 0, 0, time.UTC)

	records := []Transaction{
		{ID: "1", Amount: 5000, Kind: KindIncome, Date: mustDate(t, "2025-08-01")},
		{ID: "2", Amount: -1200, Kind: KindExpense, Date: mustDate(t, "2025-08-15")},
		{ID: "3", Amount: -300, Kind: KindExpense, Date: mustDate(t, "2025-07-10")},
	}

	stats := ComputeStats(records, ref)

	if stats.MonthlyIncome != 5000 {
		t.Errorf("MonthlyIncome = %v, want 5000", stats.MonthlyIncome)
	}
	if stats.MonthlyExpenses != 1200 {
		t.Errorf("MonthlyExpenses = %v, want 1200", stats.MonthlyExpenses)
	}
	if stats.TotalBalance != 3500 {
		t.Errorf("TotalBalance = %v, want 3500", stats.TotalBalance)
	}
	if len(stats.MonthlyTransactions) != 2 {
		t.Errorf("len(MonthlyTransactions) = %d, want 2", len(stats.MonthlyTransactions))
	}
	if stats.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", stats.TotalCount)
	}
}

func TestComputeStatsTransfersAreNetZero(t *testing.T) {
	ref := time.Date(2025, time.August, 20, 0, 0, 0, 0, time.UTC)

	records := []Transaction{
		{Amount: 1000, Kind: KindIncome, Date: mustDate(t, "2025-08-01")},
		{Amount: -250, Kind: KindTransfer, Date: mustDate(t, "2025-08-05")},
		{Amount: 250, Kind: KindTransfer, Date: mustDate(t, "2025-06-05")},
	}

	stats := ComputeStats(records, ref)

	if stats.TotalBalance != 1000 {
		t.Errorf("TotalBalance = %v, want 1000 (transfers excluded)", stats.TotalBalance)
	}
	if stats.MonthlyIncome != 1000 {
		t.Errorf("MonthlyIncome = %v, want 1000", stats.MonthlyIncome)
	}
	if stats.MonthlyExpenses != 0 {
		t.Errorf("MonthlyExpenses = %v, want 0", stats.MonthlyExpenses)
	}
	// Transfers still count as monthly records for the dashboard list.
	if len(stats.MonthlyTransactions) != 2 {
		t.Errorf("len(MonthlyTransactions) = %d, want 2", len(stats.MonthlyTransactions))
	}
}

func TestComputeStatsExpenseSignInsensitive(t *testing.T) {
	ref := time.Date(2025, time.August, 20, 0, 0, 0, 0, time.UTC)

	// Expenses stored with a positive amount still subtract from the balance.
	records := []Transaction{
		{Amount: 80, Kind: KindExpense, Date: mustDate(t, "2025-08-02")},
		{Amount: -80, Kind: KindExpense, Date: mustDate(t, "2025-08-03")},
	}

	stats := ComputeStats(records, ref)

	if stats.TotalBalance != -160 {
		t.Errorf("TotalBalance = %v, want -160", stats.TotalBalance)
	}
	if stats.MonthlyExpenses != 160 {
		t.Errorf("MonthlyExpenses = %v, want 160", stats.MonthlyExpenses)
	}
}

func TestComputeStatsEmptyInput(t *testing.T) {
	stats := ComputeStats(nil, time.Now())

	if stats.TotalBalance != 0 || stats.MonthlyIncome != 0 || stats.MonthlyExpenses != 0 {
		t.Errorf("empty input should yield zero stats, got %+v", stats)
	}
	if stats.TotalCount != 0 || len(stats.MonthlyTransactions) != 0 {
		t.Errorf("empty input should yield no records, got %+v", stats)
	}
}
