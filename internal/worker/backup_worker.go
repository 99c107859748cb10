package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bolso/internal/amqp"
	"bolso/internal/backup"
	"bolso/internal/store"
)

// BackupWorker mirrors transaction writes into the spreadsheet backup. It
// consumes change events and re-reads each row from the store, so the
// appended data is always the latest state, not the event payload.
type BackupWorker struct {
	store    store.TransactionStore
	appender backup.TransactionAppender
}

func NewBackupWorker(st store.TransactionStore, appender backup.TransactionAppender) *BackupWorker {
	return &BackupWorker{
		store:    st,
		appender: appender,
	}
}

// HandleEvent processes a single transaction change event. Returning an
// error requeues the event.
func (w *BackupWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Op {
	case amqp.OpCreate, amqp.OpUpdate:
		return w.appendCurrent(ctx, ev)
	case amqp.OpDelete:
		// The backup is append-only history; deletions stay visible there.
		slog.InfoContext(ctx, "Skipping delete event, backup is append-only",
			"transaction_id", ev.TransactionID)
		return nil
	default:
		// Unknown ops are dropped, requeueing them would loop forever.
		slog.WarnContext(ctx, "Dropping event with unknown op", "op", ev.Op)
		return nil
	}
}

func (w *BackupWorker) appendCurrent(ctx context.Context, ev *amqp.TransactionEvent) error {
	tx, err := w.store.GetTransaction(ctx, ev.OwnerID, ev.TransactionID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between the event and now; nothing to back up.
		slog.InfoContext(ctx, "Transaction gone before backup, skipping",
			"transaction_id", ev.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", ev.TransactionID, err)
	}

	ref, err := w.appender.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to backup: %w", err)
	}

	slog.InfoContext(ctx, "Backed up transaction",
		"op", ev.Op,
		"transaction_id", tx.ID,
		"owner_id", tx.OwnerID,
		"backup_ref", ref)

	return nil
}

// exponentialBackoff returns the wait before reconnect attempt n, capped at
// 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// isConnectionError reports whether an error looks like a broken broker
// connection worth reconnecting for.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection closed",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Run consumes events until the context ends, reconnecting with backoff when
// the broker connection drops.
func Run(ctx context.Context, amqpURL, exchange, queue string, w *BackupWorker) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		client, err := amqp.NewClient(amqpURL, exchange, queue)
		if err != nil {
			wait := exponentialBackoff(attempt)
			attempt++
			slog.ErrorContext(ctx, "Failed to connect to broker",
				"error", err,
				"retry_in", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		err = client.ConsumeTransactionEvents(ctx, func(ev *amqp.TransactionEvent) error {
			return w.HandleEvent(ctx, ev)
		})
		client.Close()

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if isConnectionError(err) {
			slog.WarnContext(ctx, "Broker connection lost, reconnecting", "error", err)
			continue
		}
		if err != nil {
			return err
		}
	}
}
