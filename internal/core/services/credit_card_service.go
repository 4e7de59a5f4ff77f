package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/core/policy"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/utils"
	"github.com/google/uuid"
)

type creditCardService struct {
	BaseService
	cardRepo    portsrepo.CreditCardRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
	replicas    portssvc.ReplicaSvcFacade
	serviceName string
	ownsCards   bool
}

// CreditCardServiceOption is a functional option for configuring the card service
type CreditCardServiceOption func(*creditCardService)

// WithCardReplicas makes the card service pull accounts and cards from their owners.
func WithCardReplicas(replicas portssvc.ReplicaSvcFacade) CreditCardServiceOption {
	return func(s *creditCardService) {
		s.replicas = replicas
	}
}

// WithCardOwnership records whether this service is authoritative for cards.
func WithCardOwnership(serviceName string, owns bool) CreditCardServiceOption {
	return func(s *creditCardService) {
		s.serviceName = serviceName
		s.ownsCards = owns
	}
}

// NewCreditCardService creates the credit card service.
func NewCreditCardService(cardRepo portsrepo.CreditCardRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade, options ...CreditCardServiceOption) portssvc.CreditCardSvcFacade {
	svc := &creditCardService{
		cardRepo:    cardRepo,
		accountRepo: accountRepo,
		ownsCards:   true,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.CreditCardSvcFacade = (*creditCardService)(nil)

// parseExpiry checks an MM/YY expiry and that the card has not expired.
func parseExpiry(expiry string, now time.Time) error {
	t, err := time.Parse("01/06", expiry)
	if err != nil {
		return fmt.Errorf("%w: expiry must be MM/YY", apperrors.ErrValidation)
	}
	// A card is valid through the last day of its expiry month.
	if !now.Before(t.AddDate(0, 1, 0)) {
		return fmt.Errorf("%w: card has expired", apperrors.ErrValidation)
	}
	return nil
}

// ownedAccount returns the caller's live account, pulling accounts from
// their owner when the id is not known locally yet.
func (s *creditCardService) ownedAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if errors.Is(err, apperrors.ErrNotFound) && s.replicas != nil {
		if rerr := resolveForWrite(ctx, s.replicas, caller, domain.CollectionAccounts); rerr != nil {
			return nil, rerr
		}
		account, err = s.accountRepo.FindAccountByID(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}
	if account.OwnerID != caller.ClientID {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return account, nil
}

func (s *creditCardService) requireCardOwner() error {
	if !s.ownsCards {
		return fmt.Errorf("%w: credit cards are owned by another service", apperrors.ErrReplicaReadOnly)
	}
	return nil
}

func (s *creditCardService) CreateCard(ctx context.Context, caller domain.Caller, req dto.CreateCreditCardRequest) (*domain.CreditCard, error) {
	if err := s.requireCardOwner(); err != nil {
		return nil, err
	}
	now := s.Now()
	if err := parseExpiry(req.Expiry, now); err != nil {
		return nil, err
	}
	if _, err := s.ownedAccount(ctx, caller, req.AccountID); err != nil {
		return nil, err
	}

	cvvHash, err := utils.HashSecret(req.CVV)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash CVV")
		return nil, apperrors.NewAppError(500, "failed to secure card", err)
	}

	card := domain.CreditCard{
		CardID:    uuid.NewString(),
		AccountID: req.AccountID,
		Number:    req.Number,
		Expiry:    req.Expiry,
		CVVHash:   cvvHash,
		ReplicaMeta: domain.ReplicaMeta{
			OriginService: s.serviceName,
			Version:       1,
		},
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     caller.ClientID,
			LastUpdatedAt: now,
			LastUpdatedBy: caller.ClientID,
		},
	}
	if err := s.cardRepo.SaveCard(ctx, card); err != nil {
		s.LogError(ctx, err, "Failed to save credit card", slog.String("account_id", req.AccountID))
		return nil, err
	}

	s.LogInfo(ctx, "Credit card created",
		slog.String("card_id", card.CardID),
		slog.String("account_id", card.AccountID))
	return &card, nil
}

func (s *creditCardService) ListCards(ctx context.Context, caller domain.Caller) (*dto.ListCreditCardsResponse, error) {
	stale := false
	for _, col := range []domain.Collection{domain.CollectionAccounts, domain.CollectionCreditCards} {
		st, err := resolveForRead(ctx, s.replicas, caller, col)
		if err != nil {
			return nil, err
		}
		stale = stale || st
	}

	var (
		cards []domain.CreditCard
		err   error
	)
	if caller.IsAdmin() {
		cards, err = s.cardRepo.ListCards(ctx, adminListLimit, 0, false)
	} else {
		var accounts []domain.Account
		accounts, err = s.accountRepo.ListAccountsByOwner(ctx, caller.ClientID)
		if err == nil {
			owners := make(map[string]string, len(accounts))
			ids := make([]string, 0, len(accounts))
			for _, a := range accounts {
				owners[a.AccountID] = a.OwnerID
				ids = append(ids, a.AccountID)
			}
			cards, err = s.cardRepo.ListCardsByAccounts(ctx, ids)
			cards = policy.Filter(caller, cards, policy.ByAccount(owners, func(c domain.CreditCard) string { return c.AccountID }))
		}
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to list credit cards", slog.String("client_id", caller.ClientID))
		return nil, err
	}

	return &dto.ListCreditCardsResponse{
		CreditCards: dto.ToCreditCardResponses(cards, false),
		Stale:       stale,
	}, nil
}

func (s *creditCardService) ListAllCards(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.CreditCard, error) {
	if err := s.RequireAdmin(ctx, caller, "list all credit cards"); err != nil {
		return nil, err
	}
	return s.cardRepo.ListCards(ctx, params.Limit, params.Offset, params.IncludeDeleted)
}

// ownedCard loads a card the caller may mutate.
func (s *creditCardService) ownedCard(ctx context.Context, caller domain.Caller, cardID string) (*domain.CreditCard, error) {
	card, err := s.cardRepo.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedAccount(ctx, caller, card.AccountID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: credit card %s", apperrors.ErrNotFound, cardID)
		}
		return nil, err
	}
	if card.IsReplica {
		return nil, apperrors.ErrReplicaReadOnly
	}
	return card, nil
}

func (s *creditCardService) UpdateCard(ctx context.Context, caller domain.Caller, cardID string, req dto.UpdateCreditCardRequest) (*domain.CreditCard, error) {
	if err := s.requireCardOwner(); err != nil {
		return nil, err
	}
	card, err := s.ownedCard(ctx, caller, cardID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if req.Number != nil {
		card.Number = *req.Number
	}
	if req.Expiry != nil {
		if err := parseExpiry(*req.Expiry, now); err != nil {
			return nil, err
		}
		card.Expiry = *req.Expiry
	}
	if req.CVV != nil {
		hash, err := utils.HashSecret(*req.CVV)
		if err != nil {
			s.LogError(ctx, err, "Failed to hash CVV")
			return nil, apperrors.NewAppError(500, "failed to secure card", err)
		}
		card.CVVHash = hash
	}
	card.LastUpdatedAt = now
	card.LastUpdatedBy = caller.ClientID

	if err := s.cardRepo.UpdateCard(ctx, *card); err != nil {
		s.LogError(ctx, err, "Failed to update credit card", slog.String("card_id", cardID))
		return nil, err
	}
	card.Version++

	s.LogInfo(ctx, "Credit card updated", slog.String("card_id", cardID))
	return card, nil
}

func (s *creditCardService) DeleteCard(ctx context.Context, caller domain.Caller, cardID string) error {
	if err := s.requireCardOwner(); err != nil {
		return err
	}
	if _, err := s.ownedCard(ctx, caller, cardID); err != nil {
		return err
	}
	if err := s.cardRepo.MarkCardDeleted(ctx, cardID, caller.ClientID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to delete credit card", slog.String("card_id", cardID))
		return err
	}
	s.LogInfo(ctx, "Credit card deleted", slog.String("card_id", cardID))
	return nil
}
