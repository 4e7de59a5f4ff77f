package services

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/dto"
)

// IdentitySvcFacade resolves bearer tokens to local clients.
type IdentitySvcFacade interface {
	// Authenticate verifies the token with the identity provider and returns
	// the caller bound to its local client row, creating the row on first use.
	Authenticate(ctx context.Context, token string) (domain.Caller, error)

	// GetOrCreateClient returns the local client for an identity. Concurrent
	// first callers for the same username all receive the same row.
	GetOrCreateClient(ctx context.Context, token string, identity domain.Identity) (*domain.Client, error)

	// GetClient returns the caller's own client row.
	GetClient(ctx context.Context, caller domain.Caller) (*domain.Client, error)

	// ListClients returns all clients. Admin only.
	ListClients(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.Client, error)

	// DeleteClient soft-deletes a client. Admin only.
	DeleteClient(ctx context.Context, caller domain.Caller, clientID string) error
}
