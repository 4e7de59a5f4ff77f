package dto

import (
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// CreateCreditCardRequest defines the data needed to register a card.
type CreateCreditCardRequest struct {
	AccountID string `json:"accountID" binding:"required"`
	Number    string `json:"number" binding:"required,numeric,min=12,max=19"`
	Expiry    string `json:"expiry" binding:"required,len=5" example:"09/28"`
	CVV       string `json:"cvv" binding:"required,numeric,min=3,max=4"`
}

// UpdateCreditCardRequest defines the fields of a card that may change.
type UpdateCreditCardRequest struct {
	Number *string `json:"number" binding:"omitempty,numeric,min=12,max=19"`
	Expiry *string `json:"expiry" binding:"omitempty,len=5"`
	CVV    *string `json:"cvv" binding:"omitempty,numeric,min=3,max=4"`
}

// CreditCardResponse defines the data returned for a card. The CVV is never
// returned; the number is masked unless the full record is requested by an admin.
type CreditCardResponse struct {
	CardID        string     `json:"cardID" validate:"required"`
	AccountID     string     `json:"accountID" validate:"required"`
	Number        string     `json:"number" validate:"required"`
	Expiry        string     `json:"expiry"`
	IsReplica     bool       `json:"isReplica"`
	OriginService string     `json:"originService,omitempty"`
	Version       int64      `json:"version" validate:"gte=0"`
	CreatedAt     time.Time  `json:"createdAt"`
	CreatedBy     string     `json:"createdBy"`
	LastUpdatedAt time.Time  `json:"lastUpdatedAt"`
	LastUpdatedBy string     `json:"lastUpdatedBy"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
}

// ToCreditCardResponse converts a domain.CreditCard to its DTO.
func ToCreditCardResponse(card *domain.CreditCard, reveal bool) CreditCardResponse {
	number := card.MaskedNumber()
	if reveal {
		number = card.Number
	}
	return CreditCardResponse{
		CardID:        card.CardID,
		AccountID:     card.AccountID,
		Number:        number,
		Expiry:        card.Expiry,
		IsReplica:     card.IsReplica,
		OriginService: card.OriginService,
		Version:       card.Version,
		CreatedAt:     card.CreatedAt,
		CreatedBy:     card.CreatedBy,
		LastUpdatedAt: card.LastUpdatedAt,
		LastUpdatedBy: card.LastUpdatedBy,
		DeletedAt:     card.DeletedAt,
	}
}

// ToCreditCardResponses converts a slice of cards.
func ToCreditCardResponses(cards []domain.CreditCard, reveal bool) []CreditCardResponse {
	res := make([]CreditCardResponse, len(cards))
	for i, c := range cards {
		res[i] = ToCreditCardResponse(&c, reveal)
	}
	return res
}

// ToDomain converts a replicated wire record back into a card.
func (r CreditCardResponse) ToDomain() domain.CreditCard {
	return domain.CreditCard{
		CardID:      r.CardID,
		AccountID:   r.AccountID,
		Number:      r.Number,
		Expiry:      r.Expiry,
		ReplicaMeta: domain.ReplicaMeta{Version: r.Version},
		AuditFields: domain.AuditFields{
			CreatedAt:     r.CreatedAt,
			CreatedBy:     r.CreatedBy,
			LastUpdatedAt: r.LastUpdatedAt,
			LastUpdatedBy: r.LastUpdatedBy,
		},
		DeletedAt: r.DeletedAt,
	}
}

// ListCreditCardsResponse wraps a list of cards.
type ListCreditCardsResponse struct {
	CreditCards []CreditCardResponse `json:"creditCards"`
	Stale       bool                 `json:"stale,omitempty"`
}
