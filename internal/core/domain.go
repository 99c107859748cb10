package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

const (
	KindIncome   TransactionKind = "income"
	KindExpense  TransactionKind = "expense"
	KindTransfer TransactionKind = "transfer"
)

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
)

type (
	TransactionKind string

	AccountType string

	// Transaction is a validated record owned by the data store. The sign of
	// Amount encodes direction for income/expense rows.
	Transaction struct {
		ID          string
		OwnerID     string
		Description string
		Amount      float64
		Kind        TransactionKind
		Category    string
		AccountRef  string
		Date        time.Time
		Tags        []string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Account struct {
		ID      string
		OwnerID string
		Name    string
		Type    AccountType
		Balance float64
	}

	Goal struct {
		ID            string
		OwnerID       string
		Title         string
		Description   string
		TargetAmount  float64
		CurrentAmount float64
		TargetDate    time.Time
	}

	// RawTransaction is a row as the store returns it, before validation.
	// Amount and Date stay weakly typed so malformed persisted data can be
	// rejected instead of crashing the caller.
	RawTransaction struct {
		ID          string      `json:"id"`
		OwnerID     string      `json:"owner_id"`
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
		Kind        string      `json:"kind"`
		Category    string      `json:"category"`
		AccountRef  string      `json:"account_ref,omitempty"`
		Date        string      `json:"date"`
		Tags        []string    `json:"tags,omitempty"`
		CreatedAt   string      `json:"created_at"`
		UpdatedAt   string      `json:"updated_at"`
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long (max 255 characters)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyOwner       = errors.New("empty owner id")
)

// DateLayout is the calendar-date format used by the store ports.
const DateLayout = "2006-01-02"

func (k TransactionKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountInvestment:
		return true
	}
	return false
}

// ParseTransaction validates and normalizes a raw store row. The amount is
// coerced to a float64 and must be finite; the date must parse as a calendar
// date. Rows that fail here are dropped by the synchronizer, never surfaced.
func ParseTransaction(raw RawTransaction) (Transaction, error) {
	desc := strings.TrimSpace(raw.Description)
	if desc == "" {
		return Transaction{}, ErrEmptyDescription
	}
	if len(raw.Description) > 255 {
		return Transaction{}, ErrLongDescription
	}

	amount, err := raw.Amount.Float64()
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Transaction{}, ErrInvalidAmount
	}

	kind := TransactionKind(raw.Kind)
	if !kind.Valid() {
		return Transaction{}, ErrInvalidKind
	}

	if strings.TrimSpace(raw.Category) == "" {
		return Transaction{}, ErrEmptyCategory
	}

	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return Transaction{}, ErrInvalidDate
	}

	tx := Transaction{
		ID:          raw.ID,
		OwnerID:     raw.OwnerID,
		Description: raw.Description,
		Amount:      amount,
		Kind:        kind,
		Category:    raw.Category,
		AccountRef:  raw.AccountRef,
		Date:        date,
	}
	if len(raw.Tags) > 0 {
		tx.Tags = append([]string(nil), raw.Tags...)
	}
	if ts, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
		tx.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, raw.UpdatedAt); err == nil {
		tx.UpdatedAt = ts
	}
	return tx, nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 255 {
		return ErrLongDescription
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return ErrInvalidAmount
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (a Account) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return errors.New("empty account name")
	}
	if len(a.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	if !a.Type.Valid() {
		return errors.New("invalid account type")
	}
	if math.IsNaN(a.Balance) || math.IsInf(a.Balance, 0) {
		return ErrInvalidAmount
	}
	return nil
}

func (g Goal) Validate() error {
	title := strings.TrimSpace(g.Title)
	if title == "" {
		return errors.New("empty goal title")
	}
	if len(g.Title) > 100 {
		return errors.New("goal title too long (max 100 characters)")
	}
	if len(g.Description) > 500 {
		return errors.New("goal description too long (max 500 characters)")
	}
	if !(g.TargetAmount > 0) || math.IsInf(g.TargetAmount, 0) {
		return errors.New("goal target amount must be positive")
	}
	if g.CurrentAmount < 0 || math.IsNaN(g.CurrentAmount) || math.IsInf(g.CurrentAmount, 0) {
		return errors.New("goal current amount cannot be negative")
	}
	if g.TargetDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
