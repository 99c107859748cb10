package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bolso/internal/core"
	"bolso/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed store. Amounts are persisted as decimal
// text so listing can hand back the raw column value for validation instead
// of assuming every persisted row is well formed.
type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTransactions implements store.TransactionSource.
func (r *Repository) ListTransactions(ctx context.Context, ownerID string, limit int) ([]core.RawTransaction, error) {
	query := `SELECT id, owner_id, description, amount, kind, category, account_ref, date, tags, created_at, updated_at
		FROM transactions WHERE owner_id = ? ORDER BY date DESC, created_at DESC`
	args := []any{ownerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RawTransaction
	for rows.Next() {
		var raw core.RawTransaction
		var amount, tags string
		if err := rows.Scan(&raw.ID, &raw.OwnerID, &raw.Description, &amount, &raw.Kind,
			&raw.Category, &raw.AccountRef, &raw.Date, &tags, &raw.CreatedAt, &raw.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		raw.Amount = json.Number(amount)
		raw.Tags = decodeTags(tags)
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction returns a single validated transaction.
func (r *Repository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, description, amount, kind, category, account_ref, date, tags, created_at, updated_at
		FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)

	var raw core.RawTransaction
	var amount, tags string
	err := row.Scan(&raw.ID, &raw.OwnerID, &raw.Description, &amount, &raw.Kind,
		&raw.Category, &raw.AccountRef, &raw.Date, &tags, &raw.CreatedAt, &raw.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	raw.Amount = json.Number(amount)
	raw.Tags = decodeTags(tags)

	tx, err := core.ParseTransaction(raw)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction %s: %w", id, err)
	}
	return tx, nil
}

// CreateTransaction implements store.TransactionWriter.
func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
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

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, description, amount, kind, category, account_ref, date, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, tx.Description, formatAmount(tx.Amount), string(tx.Kind), tx.Category,
		tx.AccountRef, tx.Date.Format(core.DateLayout), encodeTags(tx.Tags),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"owner_id", tx.OwnerID,
		"kind", string(tx.Kind),
		"amount", tx.Amount)

	return tx, nil
}

// UpdateTransaction implements store.TransactionWriter.
func (r *Repository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET description = ?, amount = ?, kind = ?, category = ?, account_ref = ?, date = ?, tags = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		tx.Description, formatAmount(tx.Amount), string(tx.Kind), tx.Category, tx.AccountRef,
		tx.Date.Format(core.DateLayout), encodeTags(tx.Tags), now.Format(time.RFC3339),
		tx.OwnerID, tx.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.Transaction{}, store.ErrNotFound
	}

	tx.UpdatedAt = now
	return tx, nil
}

// DeleteTransaction implements store.TransactionWriter.
func (r *Repository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListAccounts implements store.AccountStore.
func (r *Repository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, type, balance FROM accounts WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var acc core.Account
		var accType string
		if err := rows.Scan(&acc.ID, &acc.OwnerID, &acc.Name, &accType, &acc.Balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acc.Type = core.AccountType(accType)
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateAccount(ctx context.Context, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	if acc.OwnerID == "" {
		return core.Account{}, core.ErrEmptyOwner
	}

	acc.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner_id, name, type, balance) VALUES (?, ?, ?, ?, ?)`,
		acc.ID, acc.OwnerID, acc.Name, string(acc.Type), acc.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, balance = ? WHERE owner_id = ? AND id = ?`,
		acc.Name, string(acc.Type), acc.Balance, acc.OwnerID, acc.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.Account{}, store.ErrNotFound
	}
	return acc, nil
}

func (r *Repository) DeleteAccount(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListGoals implements store.GoalStore.
func (r *Repository) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, title, description, target_amount, current_amount, target_date
		FROM goals WHERE owner_id = ? ORDER BY target_date`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var targetDate string
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Title, &g.Description,
			&g.TargetAmount, &g.CurrentAmount, &targetDate); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if d, err := time.Parse(core.DateLayout, targetDate); err == nil {
			g.TargetDate = d
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if g.OwnerID == "" {
		return core.Goal{}, core.ErrEmptyOwner
	}

	g.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, owner_id, title, description, target_amount, current_amount, target_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Title, g.Description, g.TargetAmount, g.CurrentAmount,
		g.TargetDate.Format(core.DateLayout))
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (r *Repository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET title = ?, description = ?, target_amount = ?, current_amount = ?, target_date = ?
		WHERE owner_id = ? AND id = ?`,
		g.Title, g.Description, g.TargetAmount, g.CurrentAmount,
		g.TargetDate.Format(core.DateLayout), g.OwnerID, g.ID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.Goal{}, store.ErrNotFound
	}
	return g, nil
}

func (r *Repository) DeleteGoal(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeTags(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil
	}
	return tags
}
