package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentCursor marks the last entry of a page. Pages are ordered newest first.
type PaymentCursor struct {
	CreatedAt time.Time
	PaymentID string
}

// PaymentReader defines read operations for the payment ledger.
type PaymentReader interface {
	// FindPaymentByID retrieves a single payment.
	FindPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error)

	// ListPaymentsByAccounts returns up to limit payments of the given
	// accounts older than the cursor. An empty accountIDs slice with
	// allAccounts=true lists the whole ledger.
	ListPaymentsByAccounts(ctx context.Context, accountIDs []string, allAccounts bool, limit int, after *PaymentCursor) ([]domain.Payment, error)

	// SumPaymentsByAccount derives the balance of an account from its ledger.
	SumPaymentsByAccount(ctx context.Context, accountID string) (decimal.Decimal, int, error)
}

// PaymentRepositoryFacade combines all payment-related repository interfaces
type PaymentRepositoryFacade interface {
	PaymentReader
}
