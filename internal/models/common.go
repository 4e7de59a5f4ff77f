package models

import "time"

// AuditFields holds the audit columns shared by every table.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_at"`
	CreatedBy     string    `db:"created_by"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
	LastUpdatedBy string    `db:"last_updated_by"`
}

// ReplicaColumns records where a row came from.
type ReplicaColumns struct {
	IsReplica     bool       `db:"is_replica"`
	OriginService string     `db:"origin_service"`
	LastSyncedAt  *time.Time `db:"last_synced_at"`
	Version       int64      `db:"version"`
}
