package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestPartialFailureError_MatchesSentinel(t *testing.T) {
	cause := fmt.Errorf("credit leg: %w", apperrors.ErrUpstreamUnavailable)
	err := fmt.Errorf("transfer: %w", &apperrors.PartialFailureError{
		TransferID:  "t-1",
		FailedLeg:   apperrors.LegCredit,
		Compensated: true,
		Cause:       cause,
	})

	assert.ErrorIs(t, err, apperrors.ErrPartiallyFailed)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

	var pf *apperrors.PartialFailureError
	assert.True(t, errors.As(err, &pf))
	assert.Equal(t, apperrors.LegCredit, pf.FailedLeg)
	assert.True(t, pf.Compensated)
	assert.Contains(t, err.Error(), "compensated=true")
}

func TestDerivedSentinels(t *testing.T) {
	assert.ErrorIs(t, apperrors.ErrInvalidAmount, apperrors.ErrValidation)
	assert.ErrorIs(t, apperrors.ErrDuplicateAccount, apperrors.ErrDuplicate)
	assert.ErrorIs(t, apperrors.ErrReplicaReadOnly, apperrors.ErrForbidden)
	assert.NotErrorIs(t, apperrors.ErrInsufficientFunds, apperrors.ErrValidation)
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := apperrors.NewAppError(500, "failed to begin transaction", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "failed to begin transaction: boom", err.Error())
	assert.Equal(t, "no cause", apperrors.NewAppError(500, "no cause", nil).Error())
}
