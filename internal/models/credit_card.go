package models

import "time"

// CreditCard is a card row. Replicated rows carry an empty cvv_hash.
type CreditCard struct {
	CardID    string `db:"card_id"`
	AccountID string `db:"account_id"`
	Number    string `db:"number"`
	Expiry    string `db:"expiry"`
	CVVHash   string `db:"cvv_hash"`
	ReplicaColumns
	AuditFields
	DeletedAt *time.Time `db:"deleted_at"`
}
