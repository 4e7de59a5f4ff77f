package domain

import "github.com/shopspring/decimal"

// TransferResult is returned by a successful transfer.
type TransferResult struct {
	TransferID    string           `json:"transferID"`
	FromAccountID string           `json:"fromAccountID"`
	ToAccountID   string           `json:"toAccountID"`
	Amount        decimal.Decimal  `json:"amount"`
	FromBalance   decimal.Decimal  `json:"fromAccountBalance"`
	ToBalance     *decimal.Decimal `json:"toAccountBalance,omitempty"` // Unknown for cross-service credits
	Payments      []Payment        `json:"payments"`
	CrossService  bool             `json:"crossService"`
}

// BalanceCheck compares a stored balance with the ledger-derived one.
type BalanceCheck struct {
	AccountID     string          `json:"accountID"`
	StoredBalance decimal.Decimal `json:"storedBalance"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
	PaymentCount  int             `json:"paymentCount"`
}

// Consistent reports whether the stored balance matches the ledger.
func (c BalanceCheck) Consistent() bool {
	return c.StoredBalance.Equal(c.LedgerBalance)
}
