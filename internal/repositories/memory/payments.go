package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

func (s *Store) FindPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

// newerFirst orders payments by (createdAt, paymentID) descending, the
// same order the Postgres query uses.
func newerFirst(a, b domain.Payment) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.PaymentID > b.PaymentID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (s *Store) ListPaymentsByAccounts(ctx context.Context, accountIDs []string, allAccounts bool, limit int, after *portsrepo.PaymentCursor) ([]domain.Payment, error) {
	wanted := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	out := []domain.Payment{}
	for _, p := range s.payments {
		if _, ok := wanted[p.AccountID]; !ok && !allAccounts {
			continue
		}
		if after != nil && !newerFirst(domain.Payment{CreatedAt: after.CreatedAt, PaymentID: after.PaymentID}, p) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	return page(out, limit, 0), nil
}

func (s *Store) SumPaymentsByAccount(ctx context.Context, accountID string) (decimal.Decimal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	n := 0
	for _, p := range s.payments {
		if p.AccountID == accountID {
			sum = sum.Add(p.Amount)
			n++
		}
	}
	return sum, n, nil
}

// paymentKey is the idempotency key of transfer-related entries.
func paymentKey(p domain.Payment) string {
	return p.AccountID + "|" + p.TransferID + "|" + string(p.Kind)
}

// hasPaymentKeyLocked reports whether a transfer entry with the same key exists.
// Callers hold s.mu.
func (s *Store) hasPaymentKeyLocked(key string) bool {
	for _, p := range s.payments {
		if p.TransferID != "" && paymentKey(p) == key {
			return true
		}
	}
	return false
}
