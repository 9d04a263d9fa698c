package outbox

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}

// Tx is the slice of pgx.Tx the publisher needs, so callers can enqueue
// inside their own transactions.
type Tx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
