package dto

import (
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransferRequest defines a transfer between two accounts. FromAccountID may
// be omitted when the caller owns exactly one account.
type TransferRequest struct {
	FromAccountID string          `json:"fromAccountID"`
	ToAccountID   string          `json:"toAccountID" binding:"required"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"30.00"`
}

// InternalCreditRequest is the credit leg of a cross-service transfer.
type InternalCreditRequest struct {
	TransferID string          `json:"transferId" binding:"required"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string"`
}

// PaymentResponse defines the data returned for a ledger entry. It is also
// the wire record other services replicate from.
type PaymentResponse struct {
	PaymentID     string             `json:"paymentID" validate:"required"`
	AccountID     string             `json:"accountID" validate:"required"`
	Amount        decimal.Decimal    `json:"amount" swaggertype:"string"`
	Kind          domain.PaymentKind `json:"kind" validate:"required,oneof=TOP_UP TRANSFER_DEBIT TRANSFER_CREDIT COMPENSATION"`
	TransferID    string             `json:"transferID,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	CreatedBy     string             `json:"createdBy"`
	IsReplica     bool               `json:"isReplica"`
	OriginService string             `json:"originService,omitempty"`
	Version       int64              `json:"version"`
}

// ToPaymentResponse converts a domain.Payment to PaymentResponse DTO.
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:     p.PaymentID,
		AccountID:     p.AccountID,
		Amount:        p.Amount,
		Kind:          p.Kind,
		TransferID:    p.TransferID,
		CreatedAt:     p.CreatedAt,
		CreatedBy:     p.CreatedBy,
		IsReplica:     p.IsReplica,
		OriginService: p.OriginService,
		Version:       p.Version,
	}
}

// ToPaymentResponses converts a slice of domain.Payment to []PaymentResponse.
func ToPaymentResponses(payments []domain.Payment) []PaymentResponse {
	res := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		res[i] = ToPaymentResponse(&p)
	}
	return res
}

// ToDomain converts a replicated wire record back into a payment.
func (r PaymentResponse) ToDomain() domain.Payment {
	return domain.Payment{
		PaymentID:   r.PaymentID,
		AccountID:   r.AccountID,
		Amount:      r.Amount,
		Kind:        r.Kind,
		TransferID:  r.TransferID,
		CreatedAt:   r.CreatedAt,
		CreatedBy:   r.CreatedBy,
		ReplicaMeta: domain.ReplicaMeta{Version: r.Version},
	}
}

// ListPaymentsParams defines query parameters for listing payments.
type ListPaymentsParams struct {
	Limit     int     `form:"limit,default=20" binding:"min=1,max=500"`
	NextToken *string `form:"nextToken"`
	AccountID string  `form:"accountID"`
}

// ListPaymentsResponse wraps a page of payments.
type ListPaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	NextToken *string           `json:"nextToken,omitempty"`
	Stale     bool              `json:"stale,omitempty"`
}

// TransferResponse defines the data returned for a completed transfer.
type TransferResponse struct {
	TransferID         string            `json:"transferID"`
	FromAccountID      string            `json:"fromAccountID"`
	ToAccountID        string            `json:"toAccountID"`
	Amount             decimal.Decimal   `json:"amount" swaggertype:"string"`
	FromAccountBalance decimal.Decimal   `json:"fromAccountBalance" swaggertype:"string"`
	ToAccountBalance   *decimal.Decimal  `json:"toAccountBalance,omitempty" swaggertype:"string"`
	CrossService       bool              `json:"crossService"`
	Payments           []PaymentResponse `json:"payments"`
}

// ToTransferResponse converts a domain.TransferResult to its DTO.
func ToTransferResponse(r *domain.TransferResult) TransferResponse {
	return TransferResponse{
		TransferID:         r.TransferID,
		FromAccountID:      r.FromAccountID,
		ToAccountID:        r.ToAccountID,
		Amount:             r.Amount,
		FromAccountBalance: r.FromBalance,
		ToAccountBalance:   r.ToBalance,
		CrossService:       r.CrossService,
		Payments:           ToPaymentResponses(r.Payments),
	}
}

// PartialFailureResponse is returned with 502 when a cross-service transfer
// could not complete.
type PartialFailureResponse struct {
	Error       string `json:"error"`
	TransferID  string `json:"transferID"`
	FailedLeg   string `json:"failedLeg"`
	Compensated bool   `json:"compensated"`
}
