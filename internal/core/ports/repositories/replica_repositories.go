package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// ReplicaWriter upserts records pulled from their owning service.
//
// Rules shared by every method: a row is inserted when absent; an existing
// replica row is overwritten only when the incoming version is not older;
// an authoritative local row is never touched. Rows missing from a batch are
// never deleted. Each method returns the number of rows inserted or updated.
type ReplicaWriter interface {
	UpsertClients(ctx context.Context, origin string, clients []domain.Client, syncedAt time.Time) (int, error)
	UpsertAccounts(ctx context.Context, origin string, accounts []domain.Account, syncedAt time.Time) (int, error)
	UpsertCreditCards(ctx context.Context, origin string, cards []domain.CreditCard, syncedAt time.Time) (int, error)
	// UpsertPayments is insert-or-ignore: payments are immutable.
	UpsertPayments(ctx context.Context, origin string, payments []domain.Payment, syncedAt time.Time) (int, error)
}

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	ClientRepo     ClientRepositoryFacade
	AccountRepo    AccountRepositoryFacade
	PaymentRepo    PaymentRepositoryFacade
	CreditCardRepo CreditCardRepositoryFacade
	ReplicaRepo    ReplicaWriter
	Ledger         LedgerStore
}
