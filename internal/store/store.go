package store

import (
	"context"
	"errors"

	"bolso/internal/core"
)

// ErrNotFound is returned when a row does not exist or belongs to a
// different owner.
var ErrNotFound = errors.New("not found")

// Ports for the data store backing the application. Listing returns raw rows
// so the synchronizer can validate persisted data before it reaches callers.
type (
	// TransactionSource is the query side consumed by the synchronizer.
	// Rows come back owner-filtered, ordered by date descending; limit <= 0
	// means no limit.
	TransactionSource interface {
		ListTransactions(ctx context.Context, ownerID string, limit int) ([]core.RawTransaction, error)
	}

	// TransactionWriter covers the mutation paths. Every successful write
	// must be followed by cache invalidation at the service layer.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id string) error
	}

	// TransactionStore combines both sides plus point reads for the backup
	// worker.
	TransactionStore interface {
		TransactionSource
		TransactionWriter
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	}

	AccountStore interface {
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		CreateAccount(ctx context.Context, acc core.Account) (core.Account, error)
		UpdateAccount(ctx context.Context, acc core.Account) (core.Account, error)
		DeleteAccount(ctx context.Context, ownerID, id string) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error)
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		DeleteGoal(ctx context.Context, ownerID, id string) error
	}

	// Store is the full surface a backend must provide.
	Store interface {
		TransactionStore
		AccountStore
		GoalStore
		Close() error
	}
)
