package memory

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return &a, nil
}

func (s *Store) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if a, ok := s.accounts[id]; ok && a.DeletedAt == nil {
			out[id] = a
		}
	}
	return out, nil
}

func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	s.mu.RLock()
	out := []domain.Account{}
	for _, a := range s.accounts {
		if a.OwnerID == ownerID && a.DeletedAt == nil {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sortAccounts(out)
	return out, nil
}

func (s *Store) ListAccounts(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.Account, error) {
	s.mu.RLock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.DeletedAt != nil && !includeDeleted {
			continue
		}
		out = append(out, a)
	}
	s.mu.RUnlock()
	sortAccounts(out)
	return page(out, limit, offset), nil
}
