package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentKind records why a ledger entry exists.
type PaymentKind string

const (
	PaymentTopUp          PaymentKind = "TOP_UP"
	PaymentTransferDebit  PaymentKind = "TRANSFER_DEBIT"
	PaymentTransferCredit PaymentKind = "TRANSFER_CREDIT"
	PaymentCompensation   PaymentKind = "COMPENSATION"
)

// Payment is an immutable signed ledger entry attributed to one account.
type Payment struct {
	PaymentID  string          `json:"paymentID"`
	AccountID  string          `json:"accountID"`
	Amount     decimal.Decimal `json:"amount"` // Negative for debits
	Kind       PaymentKind     `json:"kind"`
	TransferID string          `json:"transferID,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	CreatedBy  string          `json:"createdBy"`
	ReplicaMeta
}

// AmountScale is the number of decimal places stored for balances and amounts.
const AmountScale = 4

// ValidAmount reports whether amount is positive and representable at AmountScale.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(AmountScale))
}
