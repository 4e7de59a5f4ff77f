package services

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// ReplicaSvcFacade keeps local copies of records owned by other services.
type ReplicaSvcFacade interface {
	// ResolveRemote pulls the caller-scoped view of a collection from its
	// owner and upserts it, unless it was refreshed within the staleness
	// window. Collections owned locally are skipped.
	ResolveRemote(ctx context.Context, collection domain.Collection, caller domain.Caller) (domain.CollectionSyncResult, error)

	// Refresh pulls the full snapshot of a collection, ignoring freshness.
	// The caller must be an admin.
	Refresh(ctx context.Context, collection domain.Collection, caller domain.Caller) (domain.CollectionSyncResult, error)
}

// SyncSvcFacade runs full resynchronization.
type SyncSvcFacade interface {
	// SyncAll refreshes every replicated collection in dependency order.
	// One collection failing does not stop the others.
	SyncAll(ctx context.Context, caller domain.Caller) (*domain.SyncReport, error)
}
