package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// completeSaga runs the remote credit leg of a cross-service transfer whose
// local debit has committed. If the credit cannot be applied the debit is
// compensated locally and the caller always gets a PartialFailureError.
//
// Both legs run on a context detached from the request: once money has left
// the sender, a client disconnect must not stop the saga half way.
func (s *ledgerService) completeSaga(ctx context.Context, caller domain.Caller, result *domain.TransferResult, origin string) (*domain.TransferResult, error) {
	sagaCtx := context.WithoutCancel(ctx)
	logger := s.GetLogger(ctx).With(
		slog.String("transfer_id", result.TransferID),
		slog.String("origin", origin))

	creditErr := s.retry.doWithRetry(sagaCtx, logger, "transfer credit", func(ctx context.Context) error {
		return s.owners.CreditAccount(ctx, origin, result.ToAccountID, result.TransferID, result.Amount)
	})
	if creditErr == nil {
		logger.Info("Remote credit leg applied", slog.String("to_account_id", result.ToAccountID))
		return result, nil
	}
	logger.Error("Remote credit leg failed, compensating debit", slog.String("error", creditErr.Error()))

	compErr := s.compensate(sagaCtx, caller, result)
	pf := &apperrors.PartialFailureError{
		TransferID:  result.TransferID,
		FailedLeg:   apperrors.LegCredit,
		Compensated: compErr == nil,
		Cause:       creditErr,
	}
	if compErr != nil {
		pf.FailedLeg = apperrors.LegCompensate
		pf.Cause = errors.Join(creditErr, compErr)
		logger.Error("Compensation failed, manual reconciliation required",
			slog.String("from_account_id", result.FromAccountID),
			slog.String("amount", result.Amount.String()),
			slog.String("error", compErr.Error()))
	} else {
		logger.Warn("Debit compensated after failed credit", slog.String("from_account_id", result.FromAccountID))
	}
	return nil, pf
}

// compensate credits the sender back. It is keyed on the transfer like the
// other legs, so running it twice has no further effect.
func (s *ledgerService) compensate(ctx context.Context, caller domain.Caller, result *domain.TransferResult) error {
	refund := s.newPayment(result.FromAccountID, result.Amount, domain.PaymentCompensation, result.TransferID, caller.ClientID)
	return s.ledger.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, []string{result.FromAccountID})
		if err != nil {
			return err
		}
		if _, ok := locked[result.FromAccountID]; !ok {
			return fmt.Errorf("%w: sender account %s vanished", apperrors.ErrNotFound, result.FromAccountID)
		}
		n, err := tx.InsertPayments(ctx, []domain.Payment{refund})
		if err != nil || n == 0 {
			return err
		}
		return tx.ApplyBalanceChanges(ctx, map[string]decimal.Decimal{result.FromAccountID: result.Amount}, caller.ClientID, s.Now())
	})
}
