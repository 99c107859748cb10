package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bolso/internal/cache"
	"bolso/internal/core"
	applog "bolso/internal/log"
	"bolso/internal/store"

	"golang.org/x/sync/singleflight"
)

// FetchFallbackMessage is the fixed user-facing text shown when loading
// transactions fails. Callers never see the underlying error.
const FetchFallbackMessage = "Could not load transactions. Please try again."

// DefaultFetchTTL is how long a fetched transaction list stays cached. It is
// configured independently of the cache's own default TTL.
const DefaultFetchTTL = 2 * time.Minute

// Scope identifies which logical query a cache entry answers: the owner and
// an optional row limit (0 means all rows).
type Scope struct {
	OwnerID string
	Limit   int
}

// Notifier delivers user-facing failure notifications. The HTTP layer plugs
// in its own implementation; tests use a recording fake.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// EventPublisher broadcasts successful mutations, e.g. to the backup queue.
// A nil publisher disables events.
type EventPublisher interface {
	PublishTransactionChange(ctx context.Context, op, ownerID, id string) error
}

// TransactionServiceConfig holds the service's tunables.
type TransactionServiceConfig struct {
	// FetchTTL is the cache TTL for fetched transaction lists (default 2m).
	FetchTTL time.Duration

	// Notifier receives the fallback message on fetch failure. Optional.
	Notifier Notifier

	// Publisher receives change events after successful writes. Optional.
	Publisher EventPublisher
}

// TransactionService is the read-through synchronization layer between
// callers and the data store. It owns one cache instance for its lifetime;
// the composition root constructs it once and shares it.
type TransactionService struct {
	store     store.TransactionStore
	cache     cache.Cache[[]core.Transaction]
	notifier  Notifier
	publisher EventPublisher
	fetchTTL  time.Duration

	// group collapses concurrent misses for the same key into one store
	// query.
	group singleflight.Group

	// ownerKeys tracks which keys have been populated per owner so writes
	// can invalidate every scope that could observe the mutation.
	mu        sync.Mutex
	ownerKeys map[string]map[string]struct{}
}

func NewTransactionService(st store.TransactionStore, c cache.Cache[[]core.Transaction], cfg TransactionServiceConfig) *TransactionService {
	if cfg.FetchTTL <= 0 {
		cfg.FetchTTL = DefaultFetchTTL
	}
	return &TransactionService{
		store:     st,
		cache:     c,
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		fetchTTL:  cfg.FetchTTL,
		ownerKeys: make(map[string]map[string]struct{}),
	}
}

// Fetch returns the transactions for a scope. It never fails: an
// unauthenticated scope and any store error both yield an empty slice, so
// downstream aggregation always has a valid record set. Failures are
// reported through the notifier with a fixed message. Cache hits return
// without touching the store.
func (s *TransactionService) Fetch(ctx context.Context, scope Scope) []core.Transaction {
	if scope.OwnerID == "" {
		return []core.Transaction{}
	}

	key := cacheKey(scope.OwnerID, scope.Limit)

	if cached, ok := s.cache.Get(key); ok {
		return copyTransactions(cached)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		rows, err := s.store.ListTransactions(ctx, scope.OwnerID, scope.Limit)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}

		valid := make([]core.Transaction, 0, len(rows))
		dropped := 0
		for _, row := range rows {
			tx, err := core.ParseTransaction(row)
			if err != nil {
				dropped++
				continue
			}
			valid = append(valid, tx)
		}
		if dropped > 0 {
			slog.WarnContext(ctx, "Dropped malformed transaction rows",
				applog.FieldOwnerID, scope.OwnerID,
				"dropped", dropped,
				"kept", len(valid))
		}

		s.cache.SetTTL(key, valid, s.fetchTTL)
		s.rememberKey(scope.OwnerID, key)
		return valid, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch transactions",
			applog.FieldOwnerID, scope.OwnerID,
			applog.FieldLimit, scope.Limit,
			applog.FieldError, err)
		s.notify(ctx, FetchFallbackMessage)
		return []core.Transaction{}
	}

	return copyTransactions(v.([]core.Transaction))
}

// Stats fetches the scope's transactions and derives the dashboard figures
// at the current time.
func (s *TransactionService) Stats(ctx context.Context, scope Scope) core.DerivedStats {
	return core.ComputeStats(s.Fetch(ctx, scope), time.Now())
}

// Invalidate removes the scope's cache entry so the next Fetch is a
// guaranteed miss.
func (s *TransactionService) Invalidate(scope Scope) {
	key := cacheKey(scope.OwnerID, scope.Limit)
	s.cache.Remove(key)
	s.forgetKey(scope.OwnerID, key)
}

// Create writes a transaction and invalidates every cached scope of its
// owner. The write bypasses the cache entirely.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidateOwner(created.OwnerID)
	s.publish(ctx, "create", created.OwnerID, created.ID)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidateOwner(updated.OwnerID)
	s.publish(ctx, "update", updated.OwnerID, updated.ID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidateOwner(ownerID)
	s.publish(ctx, "delete", ownerID, id)
	return nil
}

func (s *TransactionService) notify(ctx context.Context, message string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, message)
	}
}

func (s *TransactionService) publish(ctx context.Context, op, ownerID, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionChange(ctx, op, ownerID, id); err != nil {
		// The write already succeeded; events are best effort.
		slog.ErrorContext(ctx, "Failed to publish transaction change",
			applog.FieldOperation, op,
			applog.FieldOwnerID, ownerID,
			applog.FieldTransactionID, id,
			applog.FieldError, err)
	}
}

func (s *TransactionService) rememberKey(ownerID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, ok := s.ownerKeys[ownerID]
	if !ok {
		keys = make(map[string]struct{})
		s.ownerKeys[ownerID] = keys
	}
	keys[key] = struct{}{}
}

func (s *TransactionService) forgetKey(ownerID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keys, ok := s.ownerKeys[ownerID]; ok {
		delete(keys, key)
	}
}

// invalidateOwner drops every cached scope of one owner. A write to any
// transaction may change any of the owner's query results, limited or not.
func (s *TransactionService) invalidateOwner(ownerID string) {
	s.mu.Lock()
	keys := s.ownerKeys[ownerID]
	delete(s.ownerKeys, ownerID)
	s.mu.Unlock()

	for key := range keys {
		s.cache.Remove(key)
	}
}

// copyTransactions hands callers their own slice so cache entries are never
// aliased past the call that retrieved them. Tags is the one reference field
// on Transaction, so it gets its own backing array too.
func copyTransactions(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	copy(out, in)
	for i := range out {
		if len(out[i].Tags) > 0 {
			tags := make([]string, len(out[i].Tags))
			copy(tags, out[i].Tags)
			out[i].Tags = tags
		}
	}
	return out
}
