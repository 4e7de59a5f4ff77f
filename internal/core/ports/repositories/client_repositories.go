package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// ClientReader defines read operations for client data
type ClientReader interface {
	// FindClientByID retrieves a live client by its global id.
	FindClientByID(ctx context.Context, clientID string) (*domain.Client, error)

	// FindClientByUsername retrieves a live client by its unique username.
	FindClientByUsername(ctx context.Context, username string) (*domain.Client, error)

	// ListClients retrieves a page of clients ordered by creation time.
	ListClients(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.Client, error)
}

// ClientWriter defines write operations for client data
type ClientWriter interface {
	// InsertClientIfAbsent creates the client unless one with the same
	// username already exists. It reports whether a row was inserted.
	InsertClientIfAbsent(ctx context.Context, client domain.Client) (bool, error)

	// MarkClientDeleted soft-deletes a client.
	MarkClientDeleted(ctx context.Context, clientID string, actor string, now time.Time) error
}

// ClientRepositoryFacade combines all client-related repository interfaces
type ClientRepositoryFacade interface {
	ClientReader
	ClientWriter
}
