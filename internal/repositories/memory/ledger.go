package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// RunInTx runs fn with row locks and buffered writes. Writes become visible
// atomically when fn returns nil; on error they are discarded. Row locks
// are released on every exit path.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx := &memTx{
		store:          s,
		held:           make(map[string]struct{}),
		balanceChanges: make(map[string]decimal.Decimal),
		stateUpdates:   make(map[string]domain.Account),
	}
	defer tx.releaseAll()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	store *Store
	held  map[string]struct{}
	order []string

	newAccounts     []domain.Account
	balanceChanges  map[string]decimal.Decimal
	balanceActor    string
	balanceAt       time.Time
	stateUpdates    map[string]domain.Account
	newPayments     []domain.Payment
	deletedPayments []string
}

var _ portsrepo.LedgerTx = (*memTx)(nil)

func (t *memTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.store.acquire(ctx, key); err != nil {
		return apperrors.NewAppError(500, "failed to acquire row lock", err)
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *memTx) releaseAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.store.release(t.order[i])
	}
	t.order = nil
}

func (t *memTx) LockClient(ctx context.Context, clientID string) error {
	return t.lock(ctx, "client:"+clientID)
}

func (t *memTx) CountLiveAccountsByOwner(ctx context.Context, ownerID string) (int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	n := 0
	for _, a := range t.store.accounts {
		if a.OwnerID != ownerID {
			continue
		}
		if upd, ok := t.stateUpdates[a.AccountID]; ok {
			a = upd
		}
		if a.DeletedAt == nil {
			n++
		}
	}
	for _, a := range t.newAccounts {
		if a.OwnerID == ownerID && a.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertAccount(ctx context.Context, account domain.Account) error {
	t.store.mu.RLock()
	_, exists := t.store.accounts[account.AccountID]
	t.store.mu.RUnlock()
	if exists {
		return apperrors.ErrDuplicate
	}
	t.newAccounts = append(t.newAccounts, account)
	return nil
}

// LockAccounts takes the row locks in ascending id order.
func (t *memTx) LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if err := t.lock(ctx, "account:"+id); err != nil {
			return nil, err
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := make(map[string]domain.Account, len(ids))
	for _, id := range ids {
		a, ok := t.store.accounts[id]
		if !ok {
			for _, na := range t.newAccounts {
				if na.AccountID == id {
					a, ok = na, true
				}
			}
		}
		if !ok {
			continue
		}
		if upd, staged := t.stateUpdates[id]; staged {
			a.Blocked = upd.Blocked
			a.DeletedAt = upd.DeletedAt
		}
		if delta, staged := t.balanceChanges[id]; staged {
			a.Balance = a.Balance.Add(delta)
		}
		out[id] = a
	}
	return out, nil
}

func (t *memTx) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, actor string, now time.Time) error {
	for id, delta := range changes {
		if _, ok := t.held["account:"+id]; !ok {
			return apperrors.NewAppError(500, "balance change on unlocked account "+id, apperrors.ErrInternal)
		}
		t.balanceChanges[id] = t.balanceChanges[id].Add(delta)
	}
	t.balanceActor = actor
	t.balanceAt = now
	return nil
}

func (t *memTx) UpdateAccountState(ctx context.Context, account domain.Account) error {
	if _, ok := t.held["account:"+account.AccountID]; !ok {
		return apperrors.NewAppError(500, "state change on unlocked account "+account.AccountID, apperrors.ErrInternal)
	}
	t.stateUpdates[account.AccountID] = account
	return nil
}

func (t *memTx) InsertPayments(ctx context.Context, payments []domain.Payment) (int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	inserted := 0
	for _, p := range payments {
		if p.TransferID != "" {
			key := paymentKey(p)
			if t.store.hasPaymentKeyLocked(key) || t.stagedKey(key) {
				continue
			}
		}
		t.newPayments = append(t.newPayments, p)
		inserted++
	}
	return inserted, nil
}

func (t *memTx) stagedKey(key string) bool {
	for _, p := range t.newPayments {
		if p.TransferID != "" && paymentKey(p) == key {
			return true
		}
	}
	return false
}

func (t *memTx) FindPaymentForUpdate(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if err := t.lock(ctx, "payment:"+paymentID); err != nil {
		return nil, err
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	p, ok := t.store.payments[paymentID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) DeletePayment(ctx context.Context, paymentID string) error {
	if _, ok := t.held["payment:"+paymentID]; !ok {
		return apperrors.NewAppError(500, "delete of unlocked payment "+paymentID, apperrors.ErrInternal)
	}
	t.deletedPayments = append(t.deletedPayments, paymentID)
	return nil
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range t.newAccounts {
		s.accounts[a.AccountID] = a
	}
	for id, upd := range t.stateUpdates {
		a := s.accounts[id]
		a.Blocked = upd.Blocked
		a.DeletedAt = upd.DeletedAt
		a.LastUpdatedAt = upd.LastUpdatedAt
		a.LastUpdatedBy = upd.LastUpdatedBy
		a.Version++
		s.accounts[id] = a
	}
	for id, delta := range t.balanceChanges {
		a := s.accounts[id]
		a.Balance = a.Balance.Add(delta)
		a.LastUpdatedAt = t.balanceAt
		a.LastUpdatedBy = t.balanceActor
		a.Version++
		s.accounts[id] = a
	}
	for _, p := range t.newPayments {
		s.payments[p.PaymentID] = p
	}
	for _, id := range t.deletedPayments {
		delete(s.payments, id)
	}
}
