package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"bolso/internal/core"
	"bolso/internal/store"

	"github.com/google/uuid"
)

// Store is an in-memory backend used for development and tests. Transactions
// are held as raw rows, same shape the SQLite backend returns, so validation
// behavior matches the real store.
type Store struct {
	mu       sync.Mutex
	rows     []core.RawTransaction
	accounts []core.Account
	goals    []core.Goal
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Close() error { return nil }

// SeedRaw inserts rows verbatim, without validation. Tests use it to model
// malformed persisted data.
func (s *Store) SeedRaw(rows ...core.RawTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// ListTransactions implements store.TransactionSource.
func (s *Store) ListTransactions(_ context.Context, ownerID string, limit int) ([]core.RawTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.RawTransaction
	for _, row := range s.rows {
		if row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	// Date descending, matching the SQLite ordering.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.OwnerID == ownerID && row.ID == id {
			return core.ParseTransaction(row)
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

// CreateTransaction implements store.TransactionWriter.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.OwnerID == "" {
		return core.Transaction{}, core.ErrEmptyOwner
	}

	now := time.Now().UTC()
	tx.ID = uuid.NewString()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, toRaw(tx))
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.OwnerID == tx.OwnerID && row.ID == tx.ID {
			tx.UpdatedAt = time.Now().UTC()
			if created, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
				tx.CreatedAt = created
			}
			s.rows[i] = toRaw(tx)
			return tx, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.OwnerID == ownerID && row.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ListAccounts implements store.AccountStore.
func (s *Store) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Account
	for _, acc := range s.accounts {
		if acc.OwnerID == ownerID {
			out = append(out, acc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	if acc.OwnerID == "" {
		return core.Account{}, core.ErrEmptyOwner
	}

	acc.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, acc)
	return acc, nil
}

func (s *Store) UpdateAccount(_ context.Context, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.accounts {
		if existing.OwnerID == acc.OwnerID && existing.ID == acc.ID {
			s.accounts[i] = acc
			return acc, nil
		}
	}
	return core.Account{}, store.ErrNotFound
}

func (s *Store) DeleteAccount(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, acc := range s.accounts {
		if acc.OwnerID == ownerID && acc.ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ListGoals implements store.GoalStore.
func (s *Store) ListGoals(_ context.Context, ownerID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Goal
	for _, g := range s.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TargetDate.Before(out[j].TargetDate) })
	return out, nil
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if g.OwnerID == "" {
		return core.Goal{}, core.ErrEmptyOwner
	}

	g.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.goals {
		if existing.OwnerID == g.OwnerID && existing.ID == g.ID {
			s.goals[i] = g
			return g, nil
		}
	}
	return core.Goal{}, store.ErrNotFound
}

func (s *Store) DeleteGoal(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.goals {
		if g.OwnerID == ownerID && g.ID == id {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func toRaw(tx core.Transaction) core.RawTransaction {
	return core.RawTransaction{
		ID:          tx.ID,
		OwnerID:     tx.OwnerID,
		Description: tx.Description,
		Amount:      json.Number(strconv.FormatFloat(tx.Amount, 'f', -1, 64)),
		Kind:        string(tx.Kind),
		Category:    tx.Category,
		AccountRef:  tx.AccountRef,
		Date:        tx.Date.Format(core.DateLayout),
		Tags:        append([]string(nil), tx.Tags...),
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   tx.UpdatedAt.Format(time.RFC3339),
	}
}
