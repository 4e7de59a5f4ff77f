package memory

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

func stamp(meta domain.ReplicaMeta, origin string, syncedAt time.Time) domain.ReplicaMeta {
	t := syncedAt
	return domain.ReplicaMeta{IsReplica: true, OriginService: origin, LastSyncedAt: &t, Version: meta.Version}
}

// replace reports whether an incoming replica may overwrite the stored row.
func replace(existing domain.ReplicaMeta, incomingVersion int64) bool {
	return existing.IsReplica && incomingVersion >= existing.Version
}

// UpsertClients writes the whole batch or nothing: a username clash anywhere
// in it leaves the store untouched.
func (s *Store) UpsertClients(ctx context.Context, origin string, clients []domain.Client, syncedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]domain.Client, 0, len(clients))
	claimed := make(map[string]string, len(clients))
	for _, c := range clients {
		existing, ok := s.clients[c.ClientID]
		if ok && !replace(existing.ReplicaMeta, c.Version) {
			continue
		}
		for id, other := range s.clients {
			if id != c.ClientID && other.Username == c.Username {
				return 0, apperrors.ErrDuplicate
			}
		}
		if id, taken := claimed[c.Username]; taken && id != c.ClientID {
			return 0, apperrors.ErrDuplicate
		}
		claimed[c.Username] = c.ClientID
		pending = append(pending, c)
	}
	for _, c := range pending {
		c.ReplicaMeta = stamp(c.ReplicaMeta, origin, syncedAt)
		s.clients[c.ClientID] = c
	}
	return len(pending), nil
}

func (s *Store) UpsertAccounts(ctx context.Context, origin string, accounts []domain.Account, syncedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range accounts {
		existing, ok := s.accounts[a.AccountID]
		if ok && !replace(existing.ReplicaMeta, a.Version) {
			continue
		}
		a.ReplicaMeta = stamp(a.ReplicaMeta, origin, syncedAt)
		s.accounts[a.AccountID] = a
		n++
	}
	return n, nil
}

func (s *Store) UpsertCreditCards(ctx context.Context, origin string, cards []domain.CreditCard, syncedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range cards {
		existing, ok := s.cards[c.CardID]
		if ok && !replace(existing.ReplicaMeta, c.Version) {
			continue
		}
		if ok {
			c.CVVHash = existing.CVVHash
		}
		c.ReplicaMeta = stamp(c.ReplicaMeta, origin, syncedAt)
		s.cards[c.CardID] = c
		n++
	}
	return n, nil
}

func (s *Store) UpsertPayments(ctx context.Context, origin string, payments []domain.Payment, syncedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range payments {
		if _, ok := s.payments[p.PaymentID]; ok {
			continue
		}
		if p.TransferID != "" && s.hasPaymentKeyLocked(paymentKey(p)) {
			continue
		}
		p.ReplicaMeta = stamp(p.ReplicaMeta, origin, syncedAt)
		s.payments[p.PaymentID] = p
		n++
	}
	return n, nil
}
