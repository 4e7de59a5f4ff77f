package dto

import (
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to create a new account.
// OwnerID may only be set by admins; clients always open accounts for themselves.
type CreateAccountRequest struct {
	OwnerID string `json:"ownerID"`
}

// TopUpRequest defines the amount to add to an account.
type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"25.00"`
}

// AccountResponse defines the data returned for an account. It is also the
// wire record other services replicate from.
type AccountResponse struct {
	AccountID     string               `json:"accountID" validate:"required"`
	OwnerID       string               `json:"ownerID" validate:"required"`
	Balance       decimal.Decimal      `json:"balance" swaggertype:"string"`
	Blocked       bool                 `json:"blocked"`
	Status        domain.AccountStatus `json:"status"`
	IsReplica     bool                 `json:"isReplica"`
	OriginService string               `json:"originService,omitempty"`
	Version       int64                `json:"version" validate:"gte=0"`
	CreatedAt     time.Time            `json:"createdAt"`
	CreatedBy     string               `json:"createdBy"`
	LastUpdatedAt time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy string               `json:"lastUpdatedBy"`
	LastSyncedAt  *time.Time           `json:"lastSyncedAt,omitempty"`
	DeletedAt     *time.Time           `json:"deletedAt,omitempty"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     acc.AccountID,
		OwnerID:       acc.OwnerID,
		Balance:       acc.Balance,
		Blocked:       acc.Blocked,
		Status:        acc.Status(),
		IsReplica:     acc.IsReplica,
		OriginService: acc.OriginService,
		Version:       acc.Version,
		CreatedAt:     acc.CreatedAt,
		CreatedBy:     acc.CreatedBy,
		LastUpdatedAt: acc.LastUpdatedAt,
		LastUpdatedBy: acc.LastUpdatedBy,
		LastSyncedAt:  acc.LastSyncedAt,
		DeletedAt:     acc.DeletedAt,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i, acc := range accounts {
		res[i] = ToAccountResponse(&acc)
	}
	return res
}

// ToDomain converts a replicated wire record back into an account.
// Replica bookkeeping is filled in by the replica writer.
func (r AccountResponse) ToDomain() domain.Account {
	return domain.Account{
		AccountID:   r.AccountID,
		OwnerID:     r.OwnerID,
		Balance:     r.Balance,
		Blocked:     r.Blocked,
		ReplicaMeta: domain.ReplicaMeta{Version: r.Version},
		AuditFields: domain.AuditFields{
			CreatedAt:     r.CreatedAt,
			CreatedBy:     r.CreatedBy,
			LastUpdatedAt: r.LastUpdatedAt,
			LastUpdatedBy: r.LastUpdatedBy,
		},
		DeletedAt: r.DeletedAt,
	}
}

// ListParams defines query parameters for admin collection snapshots.
type ListParams struct {
	Limit          int  `form:"limit,default=100" binding:"min=1,max=1000"`
	Offset         int  `form:"offset,default=0" binding:"min=0"`
	IncludeDeleted bool `form:"includeDeleted"`
}

// ListAccountsResponse wraps the list of accounts.
// Stale is set when the owning service could not be reached and the local snapshot was served.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Stale    bool              `json:"stale,omitempty"`
}

// LedgerCheckResponse compares the stored balance of an account with its ledger.
type LedgerCheckResponse struct {
	AccountID     string          `json:"accountID"`
	StoredBalance decimal.Decimal `json:"storedBalance" swaggertype:"string"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance" swaggertype:"string"`
	PaymentCount  int             `json:"paymentCount"`
	Consistent    bool            `json:"consistent"`
}

// ToLedgerCheckResponse converts a domain.BalanceCheck to its DTO.
func ToLedgerCheckResponse(c *domain.BalanceCheck) LedgerCheckResponse {
	return LedgerCheckResponse{
		AccountID:     c.AccountID,
		StoredBalance: c.StoredBalance,
		LedgerBalance: c.LedgerBalance,
		PaymentCount:  c.PaymentCount,
		Consistent:    c.Consistent(),
	}
}
