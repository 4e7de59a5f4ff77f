package repositories

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// AccountReader defines read operations for account data. Writes go
// through LedgerTx.
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	// Deleted accounts are reported as not found.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple live accounts by their IDs.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ListAccountsByOwner retrieves all live accounts of one client.
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)

	// ListAccounts retrieves a page of all accounts.
	ListAccounts(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.Account, error)
}

// AccountRepositoryFacade is kept as the name services depend on.
type AccountRepositoryFacade interface {
	AccountReader
}
