package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/gamification/pkg/apperror"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

	t.Run("retries conflicts until success", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), policy, func() error {
			calls++
			if calls < 3 {
				return &pgconn.PgError{Code: "40001"}
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted retries are transient", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), policy, func() error {
			calls++
			return &pgconn.PgError{Code: "40P01"}
		})

		assert.ErrorIs(t, err, apperror.ErrTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are returned immediately", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := WithRetry(context.Background(), policy, func() error {
			calls++
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}
