package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/metrics"
)

type syncService struct {
	BaseService
	replicas portssvc.ReplicaSvcFacade
}

// NewSyncService creates the coordinator for full resynchronization.
func NewSyncService(replicas portssvc.ReplicaSvcFacade) portssvc.SyncSvcFacade {
	return &syncService{replicas: replicas}
}

var _ portssvc.SyncSvcFacade = (*syncService)(nil)

// SyncAll pulls every collection in parent-before-child order. There is no
// cross-collection transaction: a collection that committed stays
// committed when a later one fails, and the report says which failed.
func (s *syncService) SyncAll(ctx context.Context, caller domain.Caller) (*domain.SyncReport, error) {
	if err := s.RequireAdmin(ctx, caller, "sync all"); err != nil {
		return nil, err
	}

	report := &domain.SyncReport{StartedAt: s.Now()}
	for _, collection := range domain.SyncOrder {
		res, err := s.replicas.Refresh(ctx, collection, caller)
		res.Collection = collection
		if err != nil && res.Error == "" {
			res.Error = err.Error()
		}
		report.Collections = append(report.Collections, res)
	}
	report.FinishedAt = s.Now()

	if report.Partial() {
		metrics.SyncRunsTotal.WithLabelValues("partial").Inc()
		failed := make([]string, 0)
		for _, c := range report.FailedCollections() {
			failed = append(failed, string(c))
		}
		s.GetLogger(ctx).Warn("Synchronization partially failed", slog.Any("failed_collections", failed))
	} else {
		metrics.SyncRunsTotal.WithLabelValues("ok").Inc()
		s.LogInfo(ctx, "Synchronization completed", slog.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	}
	return report, nil
}
