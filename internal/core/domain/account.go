package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive  AccountStatus = "ACTIVE"
	AccountBlocked AccountStatus = "BLOCKED"
	AccountDeleted AccountStatus = "DELETED"
)

// Account represents a balance-bearing account. Balance always equals the
// sum of the account's payments.
type Account struct {
	AccountID string          `json:"accountID"`
	OwnerID   string          `json:"ownerID"` // FK -> clients.client_id (advisory across services)
	Balance   decimal.Decimal `json:"balance"`
	Blocked   bool            `json:"blocked"`
	ReplicaMeta
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Status derives the lifecycle state from the stored flags.
func (a Account) Status() AccountStatus {
	switch {
	case a.DeletedAt != nil:
		return AccountDeleted
	case a.Blocked:
		return AccountBlocked
	default:
		return AccountActive
	}
}

// Transition moves the account to the target state. Deleted is terminal.
func (a *Account) Transition(to AccountStatus, now time.Time) error {
	from := a.Status()
	if from == AccountDeleted {
		return fmt.Errorf("account %s is deleted", a.AccountID)
	}
	switch to {
	case AccountActive:
		a.Blocked = false
	case AccountBlocked:
		a.Blocked = true
	case AccountDeleted:
		a.DeletedAt = &now
	default:
		return fmt.Errorf("unknown account status %q", to)
	}
	a.LastUpdatedAt = now
	return nil
}
