package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"anoa.com/gamification/pkg/apperror"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// Postgres SQLSTATE codes that mean "another writer got there first; try again".
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// RetryPolicy bounds how often a conflicting transaction is replayed.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 25 * time.Millisecond}

// IsConflict reports whether err is a lock or serialization conflict worth retrying.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return true
		}
	}
	return false
}

// IsUniqueViolation reports a 23505 from Postgres.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// WithRetry runs fn and replays it on conflicts with exponential backoff.
// Once the attempts are exhausted the conflict surfaces as apperror.ErrTransient.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	var err error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		err = fn()
		if err == nil || !IsConflict(err) {
			return err
		}

		slog.Warn("Retrying conflicting transaction",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))

		if attempt == policy.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.BaseDelay << attempt):
		}
	}

	return fmt.Errorf("%w: %v", apperror.ErrTransient, err)
}
