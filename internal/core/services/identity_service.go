package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"golang.org/x/sync/singleflight"
)

type identityService struct {
	BaseService
	clientRepo portsrepo.ClientRepositoryFacade
	provider   portsup.IdentityProvider
	firstUse   singleflight.Group
	// Bounds a shared first-use creation, which outlives any one caller.
	firstUseTimeout time.Duration
}

// IdentityServiceOption is a functional option for configuring the identity service
type IdentityServiceOption func(*identityService)

// WithFirstUseTimeout bounds the profile fetch and insert shared by
// concurrent first callers.
func WithFirstUseTimeout(d time.Duration) IdentityServiceOption {
	return func(s *identityService) {
		if d > 0 {
			s.firstUseTimeout = d
		}
	}
}

// NewIdentityService creates the service that binds bearer tokens to local clients.
func NewIdentityService(clientRepo portsrepo.ClientRepositoryFacade, provider portsup.IdentityProvider, options ...IdentityServiceOption) portssvc.IdentitySvcFacade {
	svc := &identityService{
		clientRepo:      clientRepo,
		provider:        provider,
		firstUseTimeout: 10 * time.Second,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.IdentitySvcFacade = (*identityService)(nil)

func (s *identityService) Authenticate(ctx context.Context, token string) (domain.Caller, error) {
	if token == "" {
		return domain.Caller{}, apperrors.ErrUnauthenticated
	}
	identity, err := s.provider.Verify(ctx, token)
	if err != nil {
		return domain.Caller{}, err
	}
	client, err := s.GetOrCreateClient(ctx, token, identity)
	if err != nil {
		return domain.Caller{}, err
	}
	return domain.Caller{
		ClientID: client.ClientID,
		Username: identity.Username,
		Role:     identity.Role,
		Token:    token,
	}, nil
}

// GetOrCreateClient looks the username up locally and, on first use, pulls
// the profile from the identity provider. Concurrent first callers in this
// process share one upstream call; callers in other processes race on the
// unique username and all read back the winning row.
func (s *identityService) GetOrCreateClient(ctx context.Context, token string, identity domain.Identity) (*domain.Client, error) {
	client, err := s.clientRepo.FindClientByUsername(ctx, identity.Username)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to look up client", slog.String("username", identity.Username))
		return nil, err
	}

	v, err, shared := s.firstUse.Do(identity.Username, func() (any, error) {
		// Callers joining the flight must not fail because the first one left.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.firstUseTimeout)
		defer cancel()
		return s.createFromProfile(flightCtx, token, identity)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.LogDebug(ctx, "Shared first-use client creation", slog.String("username", identity.Username))
	}
	return v.(*domain.Client), nil
}

func (s *identityService) createFromProfile(ctx context.Context, token string, identity domain.Identity) (*domain.Client, error) {
	profile, err := s.provider.Profile(ctx, token, identity)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch client profile", slog.String("username", identity.Username))
		return nil, err
	}
	if profile.DeletedAt != nil {
		return nil, fmt.Errorf("%w: client %s is deleted", apperrors.ErrForbidden, identity.Username)
	}
	if profile.ClientID == "" {
		return nil, fmt.Errorf("%w: identity profile has no client id", apperrors.ErrUpstreamUnavailable)
	}

	now := s.Now()
	created := profile.CreatedAt
	if created.IsZero() {
		created = now
	}
	client := domain.Client{
		ClientID: profile.ClientID,
		Username: identity.Username,
		Role:     identity.Role,
		ReplicaMeta: domain.ReplicaMeta{
			IsReplica:     true,
			OriginService: domain.IdentityOrigin,
			LastSyncedAt:  &now,
			Version:       profile.Version,
		},
		AuditFields: domain.AuditFields{
			CreatedAt:     created,
			CreatedBy:     domain.IdentityOrigin,
			LastUpdatedAt: now,
			LastUpdatedBy: domain.IdentityOrigin,
		},
	}

	inserted, err := s.clientRepo.InsertClientIfAbsent(ctx, client)
	if err != nil {
		s.LogError(ctx, err, "Failed to insert client", slog.String("username", identity.Username))
		return nil, err
	}

	stored, err := s.clientRepo.FindClientByUsername(ctx, identity.Username)
	if errors.Is(err, apperrors.ErrNotFound) {
		// The username exists but its row is soft-deleted.
		return nil, fmt.Errorf("%w: client %s is deleted", apperrors.ErrForbidden, identity.Username)
	}
	if err != nil {
		return nil, err
	}
	if inserted {
		s.LogInfo(ctx, "Client created on first use",
			slog.String("client_id", stored.ClientID),
			slog.String("username", stored.Username))
	}
	return stored, nil
}

func (s *identityService) GetClient(ctx context.Context, caller domain.Caller) (*domain.Client, error) {
	return s.clientRepo.FindClientByID(ctx, caller.ClientID)
}

func (s *identityService) ListClients(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.Client, error) {
	if err := s.RequireAdmin(ctx, caller, "list clients"); err != nil {
		return nil, err
	}
	return s.clientRepo.ListClients(ctx, params.Limit, params.Offset, params.IncludeDeleted)
}

func (s *identityService) DeleteClient(ctx context.Context, caller domain.Caller, clientID string) error {
	if err := s.RequireAdmin(ctx, caller, "delete client"); err != nil {
		return err
	}
	if err := s.clientRepo.MarkClientDeleted(ctx, clientID, caller.ClientID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to delete client", slog.String("client_id", clientID))
		return err
	}
	s.LogInfo(ctx, "Client deleted", slog.String("client_id", clientID))
	return nil
}
