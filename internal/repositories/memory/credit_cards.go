package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

func (s *Store) FindCardByID(ctx context.Context, cardID string) (*domain.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[cardID]
	if !ok || c.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func sortCards(cards []domain.CreditCard) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CardID < cards[j].CardID
		}
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})
}

func (s *Store) ListCardsByAccounts(ctx context.Context, accountIDs []string) ([]domain.CreditCard, error) {
	wanted := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = struct{}{}
	}
	s.mu.RLock()
	out := []domain.CreditCard{}
	for _, c := range s.cards {
		if _, ok := wanted[c.AccountID]; ok && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sortCards(out)
	return out, nil
}

func (s *Store) ListCards(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.CreditCard, error) {
	s.mu.RLock()
	out := make([]domain.CreditCard, 0, len(s.cards))
	for _, c := range s.cards {
		if c.DeletedAt != nil && !includeDeleted {
			continue
		}
		out = append(out, c)
	}
	s.mu.RUnlock()
	sortCards(out)
	return page(out, limit, offset), nil
}

func (s *Store) SaveCard(ctx context.Context, card domain.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cards[card.CardID]; exists {
		return apperrors.ErrDuplicate
	}
	s.cards[card.CardID] = card
	return nil
}

func (s *Store) UpdateCard(ctx context.Context, card domain.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.cards[card.CardID]
	if !ok || existing.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	if existing.IsReplica {
		return apperrors.ErrReplicaReadOnly
	}
	existing.Number = card.Number
	existing.Expiry = card.Expiry
	existing.CVVHash = card.CVVHash
	existing.LastUpdatedAt = card.LastUpdatedAt
	existing.LastUpdatedBy = card.LastUpdatedBy
	existing.Version++
	s.cards[card.CardID] = existing
	return nil
}

func (s *Store) MarkCardDeleted(ctx context.Context, cardID string, actor string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if !ok || c.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	if c.IsReplica {
		return apperrors.ErrReplicaReadOnly
	}
	c.DeletedAt = &now
	c.LastUpdatedAt = now
	c.LastUpdatedBy = actor
	c.Version++
	s.cards[cardID] = c
	return nil
}
