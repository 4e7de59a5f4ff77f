package pgsql

import (
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool, ledgerOpts ...LedgerOption) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ClientRepo:     newPgxClientRepository(dbPool),
		AccountRepo:    newPgxAccountRepository(dbPool),
		PaymentRepo:    newPgxPaymentRepository(dbPool),
		CreditCardRepo: newPgxCreditCardRepository(dbPool),
		ReplicaRepo:    newPgxReplicaRepository(dbPool),
		Ledger:         newPgxLedgerStore(dbPool, ledgerOpts...),
	}
}
