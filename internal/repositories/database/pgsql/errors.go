package pgsql

import (
	"errors"
	"fmt"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isRetryable reports whether a transaction failed only because of concurrent access.
func isRetryable(err error) bool {
	switch pgCode(err) {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return false
}

// mapError translates driver errors into the application taxonomy.
func mapError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrNotFound
	case pgCode(err) == pgUniqueViolation:
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, what)
	case isRetryable(err):
		// Keep the pg error in the chain so RunInTx can retry it.
		return fmt.Errorf("%s: %w", what, err)
	default:
		return apperrors.NewAppError(500, "failed to "+what, err)
	}
}
