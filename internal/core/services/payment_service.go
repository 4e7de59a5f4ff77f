package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/core/policy"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/utils/pagination"
)

type paymentService struct {
	BaseService
	paymentRepo portsrepo.PaymentRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
	replicas    portssvc.ReplicaSvcFacade
}

// PaymentServiceOption is a functional option for configuring the payment service
type PaymentServiceOption func(*paymentService)

// WithPaymentReplicas makes listings refresh accounts and payments from their owners first.
func WithPaymentReplicas(replicas portssvc.ReplicaSvcFacade) PaymentServiceOption {
	return func(s *paymentService) {
		s.replicas = replicas
	}
}

// NewPaymentService creates the read side of the ledger.
func NewPaymentService(paymentRepo portsrepo.PaymentRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade, options ...PaymentServiceOption) portssvc.PaymentSvcFacade {
	svc := &paymentService{
		paymentRepo: paymentRepo,
		accountRepo: accountRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

func (s *paymentService) ListPayments(ctx context.Context, caller domain.Caller, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	stale := false
	for _, col := range []domain.Collection{domain.CollectionAccounts, domain.CollectionPayments} {
		st, err := resolveForRead(ctx, s.replicas, caller, col)
		if err != nil {
			return nil, err
		}
		stale = stale || st
	}

	if caller.IsAdmin() {
		resp, err := s.page(ctx, caller, params, nil, true, nil)
		if err != nil {
			return nil, err
		}
		resp.Stale = stale
		return resp, nil
	}

	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, caller.ClientID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list caller accounts", slog.String("client_id", caller.ClientID))
		return nil, err
	}
	owners := make(map[string]string, len(accounts))
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		owners[a.AccountID] = a.OwnerID
		ids = append(ids, a.AccountID)
	}
	if params.AccountID != "" {
		if !slices.Contains(ids, params.AccountID) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, params.AccountID)
		}
		ids = []string{params.AccountID}
	}

	resp, err := s.page(ctx, caller, params, ids, false, owners)
	if err != nil {
		return nil, err
	}
	resp.Stale = stale
	return resp, nil
}

func (s *paymentService) ListAllPayments(ctx context.Context, caller domain.Caller, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	if err := s.RequireAdmin(ctx, caller, "list all payments"); err != nil {
		return nil, err
	}
	return s.page(ctx, caller, params, nil, true, nil)
}

// page reads one keyset page. owners, when set, is used to filter the
// page through the visibility policy.
func (s *paymentService) page(ctx context.Context, caller domain.Caller, params dto.ListPaymentsParams, accountIDs []string, all bool, owners map[string]string) (*dto.ListPaymentsResponse, error) {
	if all && params.AccountID != "" {
		accountIDs = []string{params.AccountID}
		all = false
	}

	var after *portsrepo.PaymentCursor
	if params.NextToken != nil && *params.NextToken != "" {
		createdAt, id, err := pagination.DecodeToken(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		after = &portsrepo.PaymentCursor{CreatedAt: createdAt, PaymentID: id}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	// One extra row tells whether another page exists.
	payments, err := s.paymentRepo.ListPaymentsByAccounts(ctx, accountIDs, all, limit+1, after)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payments")
		return nil, err
	}

	var nextToken *string
	if len(payments) > limit {
		payments = payments[:limit]
		last := payments[len(payments)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.PaymentID)
		nextToken = &token
	}
	if owners != nil {
		payments = policy.Filter(caller, payments, policy.ByAccount(owners, func(p domain.Payment) string { return p.AccountID }))
	}

	return &dto.ListPaymentsResponse{
		Payments:  dto.ToPaymentResponses(payments),
		NextToken: nextToken,
	}, nil
}
