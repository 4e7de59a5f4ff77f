package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a ledger entry row. TransferID is NULL for top-ups so the
// (account_id, transfer_id, kind) unique index only constrains transfer legs.
type Payment struct {
	PaymentID  string          `db:"payment_id"`
	AccountID  string          `db:"account_id"`
	Amount     decimal.Decimal `db:"amount"`
	Kind       string          `db:"kind"`
	TransferID *string         `db:"transfer_id"`
	CreatedAt  time.Time       `db:"created_at"`
	CreatedBy  string          `db:"created_by"`
	ReplicaColumns
}
