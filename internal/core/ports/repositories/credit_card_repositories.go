package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// CreditCardReader defines read operations for credit cards.
type CreditCardReader interface {
	FindCardByID(ctx context.Context, cardID string) (*domain.CreditCard, error)
	ListCardsByAccounts(ctx context.Context, accountIDs []string) ([]domain.CreditCard, error)
	ListCards(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.CreditCard, error)
}

// CreditCardWriter defines write operations for authoritative credit cards.
type CreditCardWriter interface {
	SaveCard(ctx context.Context, card domain.CreditCard) error
	// UpdateCard overwrites number, expiry and CVV hash and bumps the version.
	UpdateCard(ctx context.Context, card domain.CreditCard) error
	MarkCardDeleted(ctx context.Context, cardID string, actor string, now time.Time) error
}

// CreditCardRepositoryFacade combines all card-related repository interfaces
type CreditCardRepositoryFacade interface {
	CreditCardReader
	CreditCardWriter
}
