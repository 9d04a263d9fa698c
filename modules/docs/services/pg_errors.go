package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akfbtn1-netizen/docflow/pkg/serrors"
)

var (
	// ErrStoreUnavailable wraps store failures that are not retryable.
	ErrStoreUnavailable = serrors.NewError("DOCS_STORE_UNAVAILABLE", "store unavailable")
	// ErrNotFound wraps pgx.ErrNoRows on lookups the caller asked for by key.
	ErrNotFound = serrors.NewError("DOCS_NOT_FOUND", "not found")
)

// Allow-list of pg error codes expected to resolve on immediate retry.
var transientPgCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"57014": {}, // query_canceled (statement timeout)
	"53300": {}, // too_many_connections
	"57P03": {}, // cannot_connect_now
}

func isTransientStoreError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := transientPgCodes[pgErr.Code]; ok {
			return true
		}
		// Class 08: connection exceptions.
		return strings.HasPrefix(pgErr.Code, "08")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// mapStoreError normalizes repository errors into the service error taxonomy.
// Errors already carrying a structured code pass through unchanged.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if serrors.CodeOf(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
