package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a balance-bearing account row.
type Account struct {
	AccountID string          `db:"account_id"`
	OwnerID   string          `db:"owner_id"`
	Balance   decimal.Decimal `db:"balance"` // Persisted; equals the sum of the account's payments
	Blocked   bool            `db:"blocked"`
	ReplicaColumns
	AuditFields
	DeletedAt *time.Time `db:"deleted_at"`
}
