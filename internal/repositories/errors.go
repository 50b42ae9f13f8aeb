package repositories

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidfriends/ingest/internal/videos"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = fmt.Errorf("record not found: %w", videos.ErrNotFound)

// acquireError marks a pool failure as a temporarily unavailable store.
func acquireError(err error) error {
	return fmt.Errorf("acquire connection: %w: %w", videos.ErrUnavailable, err)
}

// storageError wraps err with op. Connection-level failures are additionally
// marked as videos.ErrUnavailable.
func storageError(op string, err error) error {
	if connectionFailure(err) {
		return fmt.Errorf("%s: %w: %w", op, videos.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func connectionFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection_exception, 57P01 admin_shutdown, 57P03 cannot_connect_now.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" || pgErr.Code == "57P03"
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
