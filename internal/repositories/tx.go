package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidfriends/ingest/internal/videos"
)

const (
	txMaxAttempts  = 3
	txBaseBackoff  = 25 * time.Millisecond
	txMaxBackoffMs = 500
)

var retryableCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
}

// inTx runs fn in a serializable transaction on conn, retrying when the
// database reports a transient conflict.
func inTx(ctx context.Context, conn *pgxpool.Conn, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := txBaseBackoff << (attempt - 1)
			if backoff > txMaxBackoffMs*time.Millisecond {
				backoff = txMaxBackoffMs * time.Millisecond
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err = runTx(ctx, conn, fn)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("exceeded %d transaction attempts: %w: %w", txMaxAttempts, videos.ErrUnavailable, err)
}

func runTx(ctx context.Context, conn *pgxpool.Conn, fn func(pgx.Tx) error) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return storageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageError("commit transaction", err)
	}
	return nil
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryableCodes[pgErr.Code]
		return ok
	}
	return false
}
