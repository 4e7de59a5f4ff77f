package pgsql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "noop"))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows, "find"), apperrors.ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: pgUniqueViolation}, "insert"), apperrors.ErrDuplicate)

	other := mapError(errors.New("connection reset"), "query")
	var appErr *apperrors.AppError
	assert.True(t, errors.As(other, &appErr))
	assert.Equal(t, 500, appErr.Code)
}

func TestIsRetryable(t *testing.T) {
	for _, code := range []string{pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable} {
		err := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: code})
		assert.True(t, isRetryable(err), code)
		assert.True(t, isRetryable(mapError(err, "lock")), code)
		assert.True(t, isRetryable(apperrors.NewAppError(500, "failed to commit transaction", err)), code)
	}
	assert.False(t, isRetryable(&pgconn.PgError{Code: pgUniqueViolation}))
	assert.False(t, isRetryable(errors.New("plain")))
}

func TestOrActor(t *testing.T) {
	assert.Equal(t, "peer", orActor("", "peer"))
	assert.Equal(t, "alice", orActor("alice", "peer"))
}
