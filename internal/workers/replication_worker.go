// Package workers runs background jobs next to the HTTP server.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"golang.org/x/oauth2"
)

// ReplicationWorker resynchronizes every replicated collection on a fixed
// interval, acting as an admin with the service credentials.
type ReplicationWorker struct {
	syncer   portssvc.SyncSvcFacade
	tokens   oauth2.TokenSource
	interval time.Duration
	subject  string
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReplicationWorker creates a worker. subject names the service in the
// caller it syncs as.
func NewReplicationWorker(syncSvc portssvc.SyncSvcFacade, tokens oauth2.TokenSource, interval time.Duration, subject string, logger *slog.Logger) *ReplicationWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplicationWorker{
		syncer:   syncSvc,
		tokens:   tokens,
		interval: interval,
		subject:  subject,
		logger:   logger.With(slog.String("component", "replication_worker")),
	}
}

// Start launches the loop. The first run happens immediately.
func (w *ReplicationWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop cancels the loop and waits for an in-flight run to return.
func (w *ReplicationWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *ReplicationWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Replication worker started", slog.Duration("interval", w.interval))
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Replication run failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("Replication worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single full synchronization.
func (w *ReplicationWorker) RunOnce(ctx context.Context) (*domain.SyncReport, error) {
	tok, err := w.tokens.Token()
	if err != nil {
		return nil, err
	}
	caller := domain.Caller{
		Username: w.subject,
		Role:     domain.RoleAdmin,
		Token:    tok.AccessToken,
	}
	return w.syncer.SyncAll(ctx, caller)
}
