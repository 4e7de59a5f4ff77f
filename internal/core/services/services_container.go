package services

import (
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/platform/config"
)

// UpstreamDeps groups the adapters that reach other services.
type UpstreamDeps struct {
	Identity  portsup.IdentityProvider
	Owners    portsup.OwnerClient
	Freshness portsup.FreshnessTracker
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, up UpstreamDeps) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}
	retry := RetryPolicy{MaxAttempts: cfg.UpstreamMaxAttempts, BaseDelay: cfg.UpstreamBaseDelay}

	// The replica cache is shared by every service that reads replicated data
	container.Replica = NewReplicaService(
		up.Owners,
		repos.ReplicaRepo,
		up.Freshness,
		WithOwnedCollections(cfg.OwnedCollections...),
		WithReplicaRetryPolicy(retry),
	)
	container.Sync = NewSyncService(container.Replica)

	container.Identity = NewIdentityService(repos.ClientRepo, up.Identity, WithFirstUseTimeout(cfg.UpstreamTimeout))

	container.Account = NewAccountService(
		repos.AccountRepo,
		repos.Ledger,
		WithAccountReplicas(container.Replica),
		WithAccountOwnership(cfg.ServiceName, cfg.Owns(domain.CollectionAccounts)),
		WithSingleAccountPerOwner(cfg.SingleAccountPerOwner),
	)

	container.Ledger = NewLedgerService(
		repos.AccountRepo,
		repos.PaymentRepo,
		repos.Ledger,
		WithLedgerOwnership(cfg.ServiceName, cfg.Owns(domain.CollectionPayments)),
		WithCrossServiceTransfers(CrossServicePolicy(cfg.CrossServiceTransfers), up.Owners),
		WithLedgerRetryPolicy(retry),
	)

	container.Payment = NewPaymentService(
		repos.PaymentRepo,
		repos.AccountRepo,
		WithPaymentReplicas(container.Replica),
	)

	container.CreditCard = NewCreditCardService(
		repos.CreditCardRepo,
		repos.AccountRepo,
		WithCardReplicas(container.Replica),
		WithCardOwnership(cfg.ServiceName, cfg.Owns(domain.CollectionCreditCards)),
	)

	return container
}
