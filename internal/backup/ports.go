package backup

import (
	"context"

	"bolso/internal/core"
)

// TransactionAppender is the outbound port for the spreadsheet backup. The
// adapter appends one row per transaction and returns a destination
// reference.
type TransactionAppender interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (ref string, err error)
}
