package pgsql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type txFunc = func(ctx context.Context, tx portsrepo.LedgerTx) error

// scriptedStore returns a ledger store whose transactions fail with the
// given errors in order, then succeed.
func scriptedStore(maxAttempts int, errs ...error) (*PgxLedgerStore, *int) {
	calls := 0
	s := newPgxLedgerStore(nil, WithMaxAttempts(maxAttempts))
	s.retryDelay = time.Millisecond
	s.attempt = func(ctx context.Context, fn txFunc) error {
		calls++
		if calls <= len(errs) {
			return errs[calls-1]
		}
		return nil
	}
	return s, &calls
}

func noop(context.Context, portsrepo.LedgerTx) error { return nil }

func TestRunInTx_RetriesContention(t *testing.T) {
	serialization := mapError(&pgconn.PgError{Code: pgSerializationFailure}, "lock accounts")
	deadlock := mapError(&pgconn.PgError{Code: pgDeadlockDetected}, "lock accounts")

	s, calls := scriptedStore(3, serialization, deadlock)
	require.NoError(t, s.RunInTx(context.Background(), noop))
	assert.Equal(t, 3, *calls)
}

func TestRunInTx_GivesUpWithContention(t *testing.T) {
	lockTimeout := mapError(&pgconn.PgError{Code: pgLockNotAvailable}, "lock accounts")

	s, calls := scriptedStore(2, lockTimeout, lockTimeout, lockTimeout)
	err := s.RunInTx(context.Background(), noop)
	assert.ErrorIs(t, err, apperrors.ErrContention)
	assert.Equal(t, 2, *calls)
}

func TestRunInTx_OtherErrorsAreNotRetried(t *testing.T) {
	s, calls := scriptedStore(3, apperrors.ErrInsufficientFunds)
	err := s.RunInTx(context.Background(), noop)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.NotErrorIs(t, err, apperrors.ErrContention)
	assert.Equal(t, 1, *calls)
}

func TestRunInTx_CancelledWhileBackingOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	serialization := &pgconn.PgError{Code: pgSerializationFailure}

	s := newPgxLedgerStore(nil, WithMaxAttempts(5))
	s.retryDelay = time.Hour
	s.attempt = func(context.Context, txFunc) error {
		cancel()
		return serialization
	}
	err := s.RunInTx(ctx, noop)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
