package domain

import (
	"strings"
	"time"
)

// CreditCard is a payment instrument bound to an account.
type CreditCard struct {
	CardID    string `json:"cardID"`
	AccountID string `json:"accountID"`
	Number    string `json:"number"`
	Expiry    string `json:"expiry"` // MM/YY
	CVVHash   string `json:"-"`
	ReplicaMeta
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// MaskedNumber hides all but the last four digits.
func (c CreditCard) MaskedNumber() string {
	n := len(c.Number)
	if n <= 4 {
		return c.Number
	}
	return strings.Repeat("*", n-4) + c.Number[n-4:]
}
