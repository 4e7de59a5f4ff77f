package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInternal is returned when an unexpected infrastructure failure occurs.
var ErrInternal = errors.New("internal error")

// ErrUnauthenticated indicates a missing, malformed or expired bearer credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden indicates a role or ownership mismatch.
var ErrForbidden = errors.New("forbidden")

// Ledger errors.
var (
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountBlocked    = errors.New("account is blocked")
	ErrDuplicateAccount  = fmt.Errorf("%w: client already has an account", ErrDuplicate)
)

// ErrUpstreamUnavailable indicates that a dependent service call failed or timed out.
var ErrUpstreamUnavailable = errors.New("upstream service unavailable")

// ErrContention indicates that a concurrency conflict persisted after all retries.
var ErrContention = errors.New("concurrent modification, retries exhausted")

// ErrPartiallyFailed indicates a cross-service transfer that could not fully complete.
var ErrPartiallyFailed = errors.New("transfer partially failed")

// ErrReplicaReadOnly is returned when a mutation targets a row owned by another service.
var ErrReplicaReadOnly = fmt.Errorf("%w: record is a read-only replica", ErrForbidden)

// AppError wraps an infrastructure error with an HTTP-ish code and a safe message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// TransferLeg names a step of a cross-service transfer.
type TransferLeg string

const (
	LegDebit      TransferLeg = "DEBIT"
	LegCredit     TransferLeg = "CREDIT"
	LegCompensate TransferLeg = "COMPENSATION"
)

// PartialFailureError carries what a reconciler needs after a saga could not complete.
type PartialFailureError struct {
	TransferID  string
	FailedLeg   TransferLeg
	Compensated bool
	Cause       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("transfer %s partially failed at %s leg (compensated=%t): %v",
		e.TransferID, e.FailedLeg, e.Compensated, e.Cause)
}

// Is lets errors.Is(err, ErrPartiallyFailed) match.
func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartiallyFailed
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}
