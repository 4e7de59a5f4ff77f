package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/metrics"
)

// Reasons reported in CollectionSyncResult.Skipped.
const (
	SkipOwnedLocally = "owned locally"
	SkipNoUpstream   = "no upstream configured"
	SkipFresh        = "fresh"
	SkipNoToken      = "no credentials"
)

type replicaService struct {
	BaseService
	owners      portsup.OwnerClient
	replicaRepo portsrepo.ReplicaWriter
	freshness   portsup.FreshnessTracker
	owned       map[domain.Collection]bool
	retry       RetryPolicy
}

// ReplicaServiceOption is a functional option for configuring the replica service
type ReplicaServiceOption func(*replicaService)

// WithOwnedCollections lists the collections this service is authoritative
// for; they are never pulled.
func WithOwnedCollections(collections ...domain.Collection) ReplicaServiceOption {
	return func(s *replicaService) {
		for _, c := range collections {
			s.owned[c] = true
		}
	}
}

// WithReplicaRetryPolicy bounds the retries of upstream fetches.
func WithReplicaRetryPolicy(p RetryPolicy) ReplicaServiceOption {
	return func(s *replicaService) {
		s.retry = p
	}
}

// NewReplicaService creates the replica cache.
func NewReplicaService(owners portsup.OwnerClient, replicaRepo portsrepo.ReplicaWriter, freshness portsup.FreshnessTracker, options ...ReplicaServiceOption) portssvc.ReplicaSvcFacade {
	svc := &replicaService{
		owners:      owners,
		replicaRepo: replicaRepo,
		freshness:   freshness,
		owned:       make(map[domain.Collection]bool),
		retry:       DefaultRetryPolicy,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ReplicaSvcFacade = (*replicaService)(nil)

// freshnessKey scopes freshness to what the caller can see: admins pull the
// whole collection, clients only their own records.
func freshnessKey(collection domain.Collection, caller domain.Caller) string {
	if caller.IsAdmin() {
		return string(collection) + ":all"
	}
	return string(collection) + ":client:" + caller.ClientID
}

func (s *replicaService) skipReason(collection domain.Collection, caller domain.Caller) (string, bool) {
	if s.owned[collection] {
		return SkipOwnedLocally, true
	}
	if _, ok := s.owners.Origin(collection); !ok {
		return SkipNoUpstream, true
	}
	if caller.Token == "" {
		return SkipNoToken, true
	}
	return "", false
}

func (s *replicaService) ResolveRemote(ctx context.Context, collection domain.Collection, caller domain.Caller) (domain.CollectionSyncResult, error) {
	result := domain.CollectionSyncResult{Collection: collection}
	if reason, skip := s.skipReason(collection, caller); skip {
		result.Skipped = reason
		return result, nil
	}

	key := freshnessKey(collection, caller)
	fresh, err := s.freshness.IsFresh(ctx, key)
	if err != nil {
		s.LogWarn(ctx, err, "Freshness check failed, resolving anyway", slog.String("key", key))
	}
	if fresh {
		metrics.ReplicaResolutionsTotal.WithLabelValues(string(collection), "fresh").Inc()
		result.Skipped = SkipFresh
		return result, nil
	}

	scope := portsup.FetchScope{Token: caller.Token, All: caller.IsAdmin()}
	result, err = s.pull(ctx, collection, scope)
	if err != nil {
		return result, err
	}
	if err := s.freshness.MarkFresh(ctx, key); err != nil {
		s.LogWarn(ctx, err, "Failed to record replica freshness", slog.String("key", key))
	}
	return result, nil
}

func (s *replicaService) Refresh(ctx context.Context, collection domain.Collection, caller domain.Caller) (domain.CollectionSyncResult, error) {
	result := domain.CollectionSyncResult{Collection: collection}
	if err := s.RequireAdmin(ctx, caller, "refresh "+string(collection)); err != nil {
		return result, err
	}
	if reason, skip := s.skipReason(collection, caller); skip {
		result.Skipped = reason
		return result, nil
	}

	key := freshnessKey(collection, caller)
	result, err := s.pull(ctx, collection, portsup.FetchScope{Token: caller.Token, All: true, IncludeDeleted: true})
	if err != nil {
		if ierr := s.freshness.Invalidate(ctx, key); ierr != nil {
			s.LogWarn(ctx, ierr, "Failed to invalidate replica freshness", slog.String("key", key))
		}
		return result, err
	}
	if err := s.freshness.MarkFresh(ctx, key); err != nil {
		s.LogWarn(ctx, err, "Failed to record replica freshness", slog.String("key", key))
	}
	return result, nil
}

// pull fetches a snapshot with bounded retries and upserts it. Rows absent
// from the snapshot are left alone.
func (s *replicaService) pull(ctx context.Context, collection domain.Collection, scope portsup.FetchScope) (domain.CollectionSyncResult, error) {
	result := domain.CollectionSyncResult{Collection: collection}
	logger := s.GetLogger(ctx).With(slog.String("collection", string(collection)))

	var batch domain.ReplicaBatch
	err := s.retry.doWithRetry(ctx, logger, "fetch "+string(collection), func(ctx context.Context) error {
		b, err := s.owners.FetchCollection(ctx, collection, scope)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		metrics.ReplicaResolutionsTotal.WithLabelValues(string(collection), "error").Inc()
		logger.Error("Failed to fetch replica snapshot", slog.String("error", err.Error()))
		result.Error = err.Error()
		return result, err
	}
	result.Fetched = batch.Len()

	origin := batch.Origin
	if origin == "" {
		origin, _ = s.owners.Origin(collection)
	}
	n, err := s.upsert(ctx, collection, origin, batch)
	if err != nil {
		metrics.ReplicaResolutionsTotal.WithLabelValues(string(collection), "error").Inc()
		logger.Error("Failed to upsert replica snapshot", slog.String("error", err.Error()))
		result.Error = err.Error()
		return result, err
	}
	result.Upserted = n

	metrics.ReplicaResolutionsTotal.WithLabelValues(string(collection), "fetched").Inc()
	metrics.ReplicaUpsertedTotal.WithLabelValues(string(collection)).Add(float64(n))
	logger.Debug("Replica snapshot applied",
		slog.String("origin", origin),
		slog.Int("fetched", result.Fetched),
		slog.Int("upserted", n))
	return result, nil
}

func (s *replicaService) upsert(ctx context.Context, collection domain.Collection, origin string, batch domain.ReplicaBatch) (int, error) {
	now := s.Now()
	switch collection {
	case domain.CollectionClients:
		return s.replicaRepo.UpsertClients(ctx, origin, batch.Clients, now)
	case domain.CollectionAccounts:
		return s.replicaRepo.UpsertAccounts(ctx, origin, batch.Accounts, now)
	case domain.CollectionCreditCards:
		return s.replicaRepo.UpsertCreditCards(ctx, origin, batch.CreditCards, now)
	case domain.CollectionPayments:
		return s.replicaRepo.UpsertPayments(ctx, origin, batch.Payments, now)
	default:
		return 0, fmt.Errorf("unknown collection %q", collection)
	}
}
