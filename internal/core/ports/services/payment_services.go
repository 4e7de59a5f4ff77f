package services

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/dto"
)

// PaymentSvcFacade lists ledger entries. Writes go through LedgerSvcFacade.
type PaymentSvcFacade interface {
	// ListPayments returns a page of payments visible to the caller.
	ListPayments(ctx context.Context, caller domain.Caller, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error)

	// ListAllPayments returns a page of the local ledger. Admin only.
	ListAllPayments(ctx context.Context, caller domain.Caller, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error)
}
