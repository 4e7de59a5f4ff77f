package services

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/dto"
)

// CreditCardSvcFacade manages payment cards bound to accounts.
type CreditCardSvcFacade interface {
	CreateCard(ctx context.Context, caller domain.Caller, req dto.CreateCreditCardRequest) (*domain.CreditCard, error)
	ListCards(ctx context.Context, caller domain.Caller) (*dto.ListCreditCardsResponse, error)
	ListAllCards(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.CreditCard, error)
	UpdateCard(ctx context.Context, caller domain.Caller, cardID string, req dto.UpdateCreditCardRequest) (*domain.CreditCard, error)
	DeleteCard(ctx context.Context, caller domain.Caller, cardID string) error
}
