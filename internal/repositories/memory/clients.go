package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

func (s *Store) FindClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok || c.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (s *Store) FindClientByUsername(ctx context.Context, username string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.Username == username && c.DeletedAt == nil {
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) ListClients(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.Client, error) {
	s.mu.RLock()
	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.DeletedAt != nil && !includeDeleted {
			continue
		}
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ClientID < out[j].ClientID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

// InsertClientIfAbsent mirrors INSERT ... ON CONFLICT (username) DO NOTHING.
func (s *Store) InsertClientIfAbsent(ctx context.Context, client domain.Client) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.Username == client.Username {
			return false, nil
		}
	}
	if _, exists := s.clients[client.ClientID]; exists {
		return false, apperrors.ErrDuplicate
	}
	s.clients[client.ClientID] = client
	return true, nil
}

func (s *Store) MarkClientDeleted(ctx context.Context, clientID string, actor string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok || c.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	c.DeletedAt = &now
	c.LastUpdatedAt = now
	c.LastUpdatedBy = actor
	c.Version++
	s.clients[clientID] = c
	return nil
}
