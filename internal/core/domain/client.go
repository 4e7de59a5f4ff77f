package domain

import (
	"fmt"
	"time"
)

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// ParseRole converts a raw role claim into a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleClient:
		return RoleClient, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// IsAdmin reports whether the role grants collection-wide access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity is what the identity provider tells us about a bearer token.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Caller is an authenticated identity resolved to its local client row.
type Caller struct {
	ClientID string
	Username string
	Role     Role
	Token    string // raw bearer token, forwarded on caller-scoped upstream calls
}

// IsAdmin reports whether the caller is an administrator.
func (c Caller) IsAdmin() bool {
	return c.Role.IsAdmin()
}

// Client is the local projection of an identity.
type Client struct {
	ClientID string `json:"clientID"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	ReplicaMeta
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
