package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // Client ID or "system"
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

// ReplicaMeta describes where a row came from. Rows created by this service
// have IsReplica=false and are authoritative.
type ReplicaMeta struct {
	IsReplica     bool       `json:"isReplica"`
	OriginService string     `json:"originService"`
	LastSyncedAt  *time.Time `json:"lastSyncedAt,omitempty"`
	Version       int64      `json:"version"` // Bumped on every authoritative write
}

// SystemActor is recorded in audit fields for writes made by background jobs.
const SystemActor = "system"
