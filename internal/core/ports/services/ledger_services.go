package services

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerSvcFacade is the only writer of balances and payments.
type LedgerSvcFacade interface {
	// TopUp adds a positive amount to one of the caller's accounts.
	TopUp(ctx context.Context, caller domain.Caller, accountID string, amount decimal.Decimal) (*domain.Account, error)

	// Transfer moves money from one of the caller's accounts to another account.
	// An empty fromAccountID selects the caller's only account.
	Transfer(ctx context.Context, caller domain.Caller, fromAccountID string, toAccountID string, amount decimal.Decimal) (*domain.TransferResult, error)

	// CreditFromTransfer applies the credit leg of a transfer started on
	// another service. It is idempotent on transferID.
	CreditFromTransfer(ctx context.Context, caller domain.Caller, accountID string, transferID string, amount decimal.Decimal) (*domain.Payment, error)

	// DeriveBalance sums the payments of an account.
	DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, int, error)

	// VerifyBalance compares the stored balance with the ledger. Admin only.
	VerifyBalance(ctx context.Context, caller domain.Caller, accountID string) (*domain.BalanceCheck, error)

	// CorrectPayment removes a payment and rebalances its account. Admin only.
	CorrectPayment(ctx context.Context, caller domain.Caller, paymentID string) (*domain.Account, error)
}
