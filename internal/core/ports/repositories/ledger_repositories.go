package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerTx is the set of operations available inside a ledger transaction.
// Every balance mutation goes through it so that account rows are locked
// before they are read for update.
type LedgerTx interface {
	// LockClient serializes account creation for one owner.
	LockClient(ctx context.Context, clientID string) error

	// CountLiveAccountsByOwner counts non-deleted accounts owned by the client.
	CountLiveAccountsByOwner(ctx context.Context, ownerID string) (int, error)

	// InsertAccount persists a new authoritative account.
	InsertAccount(ctx context.Context, account domain.Account) error

	// LockAccounts locks the given accounts in ascending id order and returns
	// the ones that exist (deleted accounts included). Missing ids are simply absent.
	LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ApplyBalanceChanges adds each delta to the account balance and bumps the version.
	ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, actor string, now time.Time) error

	// UpdateAccountState persists blocked/deleted flags of a locked account and bumps the version.
	UpdateAccountState(ctx context.Context, account domain.Account) error

	// InsertPayments appends ledger entries. Entries whose
	// (account, transfer, kind) already exists are ignored; the number of
	// inserted rows is returned.
	InsertPayments(ctx context.Context, payments []domain.Payment) (int, error)

	// FindPaymentForUpdate locks a single payment row.
	FindPaymentForUpdate(ctx context.Context, paymentID string) (*domain.Payment, error)

	// DeletePayment removes a payment row. Only the correction path calls it.
	DeletePayment(ctx context.Context, paymentID string) error
}

// LedgerStore runs ledger transactions. The callback's error rolls the
// transaction back; a nil return commits it. Implementations retry
// serialization failures, deadlocks and lock timeouts up to their configured
// limit and then return apperrors.ErrContention.
type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
