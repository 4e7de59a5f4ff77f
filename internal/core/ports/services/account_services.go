package services

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccount returns an account visible to the caller.
	GetAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error)

	// ListAccounts returns the caller's accounts, refreshing replicas first.
	ListAccounts(ctx context.Context, caller domain.Caller) (*dto.ListAccountsResponse, error)

	// ListAllAccounts returns the local account snapshot. Admin only.
	ListAllAccounts(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.Account, error)
}

// AccountWriterSvc defines lifecycle operations for accounts
type AccountWriterSvc interface {
	CreateAccount(ctx context.Context, caller domain.Caller, req dto.CreateAccountRequest) (*domain.Account, error)
	BlockAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error)
	UnblockAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error)
	DeleteAccount(ctx context.Context, caller domain.Caller, accountID string) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
