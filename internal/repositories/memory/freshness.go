package memory

import (
	"context"
	"sync"
	"time"

	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
)

// FreshnessTracker is the in-process fallback used when Redis is not configured.
type FreshnessTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	expires map[string]time.Time
}

var _ portsup.FreshnessTracker = (*FreshnessTracker)(nil)

// NewFreshnessTracker creates a tracker whose entries expire after ttl.
// A zero ttl disables caching: nothing is ever fresh.
func NewFreshnessTracker(ttl time.Duration, now func() time.Time) *FreshnessTracker {
	if now == nil {
		now = time.Now
	}
	return &FreshnessTracker{ttl: ttl, now: now, expires: make(map[string]time.Time)}
}

func (f *FreshnessTracker) IsFresh(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.expires[key]
	if !ok {
		return false, nil
	}
	if !f.now().Before(exp) {
		delete(f.expires, key)
		return false, nil
	}
	return true, nil
}

func (f *FreshnessTracker) MarkFresh(ctx context.Context, key string) error {
	if f.ttl <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = f.now().Add(f.ttl)
	return nil
}

func (f *FreshnessTracker) Invalidate(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.expires, key)
	return nil
}
