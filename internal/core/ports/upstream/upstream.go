// Package upstream declares what the core needs from other services: the
// identity provider, the owners of replicated collections, and a cache that
// remembers when a replica was last refreshed.
package upstream

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/shopspring/decimal"
)

// IdentityProvider verifies bearer credentials.
type IdentityProvider interface {
	// Verify returns the identity behind a token or apperrors.ErrUnauthenticated.
	Verify(ctx context.Context, token string) (domain.Identity, error)

	// Profile returns the attributes used to create the local client row.
	// ClientID is the global id shared by every service.
	Profile(ctx context.Context, token string, identity domain.Identity) (domain.Client, error)
}

// FetchScope controls how an owner's read endpoint is called.
type FetchScope struct {
	Token          string // Forwarded bearer token
	All            bool   // Use the admin-only /all endpoint
	IncludeDeleted bool
}

// OwnerClient talks to the services that own collections this service
// replicates.
type OwnerClient interface {
	// Origin returns the name of the service configured as the owner of a
	// collection, and false if none is configured.
	Origin(collection domain.Collection) (string, bool)

	// FetchCollection pulls a snapshot of a collection from its owner.
	FetchCollection(ctx context.Context, collection domain.Collection, scope FetchScope) (domain.ReplicaBatch, error)

	// CreditAccount asks the owner of an account to apply the credit leg of
	// a transfer. Repeating a call with the same transfer id has no effect.
	CreditAccount(ctx context.Context, origin string, accountID string, transferID string, amount decimal.Decimal) error
}

// FreshnessTracker remembers which replica scopes were refreshed recently.
type FreshnessTracker interface {
	IsFresh(ctx context.Context, key string) (bool, error)
	MarkFresh(ctx context.Context, key string) error
	Invalidate(ctx context.Context, key string) error
}
