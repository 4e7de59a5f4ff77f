package models

import "time"

// Client is the local projection of an identity.
type Client struct {
	ClientID string `db:"client_id"`
	Username string `db:"username"`
	Role     string `db:"role"`
	ReplicaColumns
	AuditFields
	DeletedAt *time.Time `db:"deleted_at"`
}
