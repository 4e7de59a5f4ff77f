// Package memory is a process-local implementation of the repository ports.
// It is used when no Postgres URL is configured and by the ledger tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
)

// Store keeps every collection in maps guarded by one RWMutex. Ledger
// transactions additionally hold per-row locks for their whole duration,
// see ledger.go.
type Store struct {
	mu       sync.RWMutex
	clients  map[string]domain.Client
	accounts map[string]domain.Account
	payments map[string]domain.Payment
	cards    map[string]domain.CreditCard

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		clients:  make(map[string]domain.Client),
		accounts: make(map[string]domain.Account),
		payments: make(map[string]domain.Payment),
		cards:    make(map[string]domain.CreditCard),
		locks:    make(map[string]chan struct{}),
	}
}

var (
	_ portsrepo.ClientRepositoryFacade     = (*Store)(nil)
	_ portsrepo.AccountRepositoryFacade    = (*Store)(nil)
	_ portsrepo.PaymentRepositoryFacade    = (*Store)(nil)
	_ portsrepo.CreditCardRepositoryFacade = (*Store)(nil)
	_ portsrepo.ReplicaWriter              = (*Store)(nil)
	_ portsrepo.LedgerStore                = (*Store)(nil)
)

// NewRepositoryProvider wires a single store into every repository slot.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ClientRepo:     store,
		AccountRepo:    store,
		PaymentRepo:    store,
		CreditCardRepo: store,
		ReplicaRepo:    store,
		Ledger:         store,
	}
}

// rowLock returns the lock channel for a key, creating it on first use.
func (s *Store) rowLock(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// acquire blocks until the row lock is held or the context ends.
func (s *Store) acquire(ctx context.Context, key string) error {
	select {
	case s.rowLock(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release(key string) {
	<-s.rowLock(key)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func sortAccounts(accounts []domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].AccountID < accounts[j].AccountID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
}
