package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CrossServicePolicy decides what happens when a transfer targets an account
// owned by another service.
type CrossServicePolicy string

const (
	// CrossServiceReject refuses such transfers with apperrors.ErrForbidden.
	CrossServiceReject CrossServicePolicy = "reject"
	// CrossServiceSaga debits locally, asks the owner to credit, and
	// compensates the debit when the credit fails.
	CrossServiceSaga CrossServicePolicy = "saga"
)

// legNamespace derives deterministic payment ids for transfer legs so that
// a repeated credit request maps to the same payment.
var legNamespace = uuid.MustParse("6f1c7e0e-3b59-4a43-9d57-2a7f0c6a1c01")

type ledgerService struct {
	BaseService
	accountRepo  portsrepo.AccountRepositoryFacade
	paymentRepo  portsrepo.PaymentRepositoryFacade
	ledger       portsrepo.LedgerStore
	owners       portsup.OwnerClient
	crossService CrossServicePolicy
	serviceName  string
	ownsLedger   bool
	retry        RetryPolicy
}

// LedgerServiceOption is a functional option for configuring the ledger service
type LedgerServiceOption func(*ledgerService)

// WithCrossServiceTransfers sets the cross-service policy and the client
// used to reach account owners.
func WithCrossServiceTransfers(policy CrossServicePolicy, owners portsup.OwnerClient) LedgerServiceOption {
	return func(s *ledgerService) {
		s.crossService = policy
		s.owners = owners
	}
}

// WithLedgerOwnership records the service name written on new payments and
// whether this service is authoritative for the ledger.
func WithLedgerOwnership(serviceName string, owns bool) LedgerServiceOption {
	return func(s *ledgerService) {
		s.serviceName = serviceName
		s.ownsLedger = owns
	}
}

// WithLedgerRetryPolicy bounds the retries of the saga's credit call.
func WithLedgerRetryPolicy(p RetryPolicy) LedgerServiceOption {
	return func(s *ledgerService) {
		s.retry = p
	}
}

// NewLedgerService creates the only writer of balances and payments.
func NewLedgerService(accountRepo portsrepo.AccountRepositoryFacade, paymentRepo portsrepo.PaymentRepositoryFacade, ledger portsrepo.LedgerStore, options ...LedgerServiceOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		accountRepo:  accountRepo,
		paymentRepo:  paymentRepo,
		ledger:       ledger,
		crossService: CrossServiceReject,
		ownsLedger:   true,
		retry:        DefaultRetryPolicy,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func checkAmount(amount decimal.Decimal) error {
	if !domain.ValidAmount(amount) {
		return fmt.Errorf("%w, with at most %d decimal places", apperrors.ErrInvalidAmount, domain.AmountScale)
	}
	return nil
}

func (s *ledgerService) requireLedgerOwner() error {
	if !s.ownsLedger {
		return fmt.Errorf("%w: the ledger is owned by another service", apperrors.ErrReplicaReadOnly)
	}
	return nil
}

func (s *ledgerService) newPayment(accountID string, amount decimal.Decimal, kind domain.PaymentKind, transferID, actor string) domain.Payment {
	id := uuid.NewString()
	if transferID != "" {
		id = uuid.NewSHA1(legNamespace, []byte(transferID+"|"+accountID+"|"+string(kind))).String()
	}
	return domain.Payment{
		PaymentID:  id,
		AccountID:  accountID,
		Amount:     amount,
		Kind:       kind,
		TransferID: transferID,
		CreatedAt:  s.Now(),
		CreatedBy:  actor,
		ReplicaMeta: domain.ReplicaMeta{
			OriginService: s.serviceName,
			Version:       1,
		},
	}
}

func (s *ledgerService) TopUp(ctx context.Context, caller domain.Caller, accountID string, amount decimal.Decimal) (*domain.Account, error) {
	var updated domain.Account
	err := s.topUp(ctx, caller, accountID, amount, &updated)
	metrics.LedgerOperationsTotal.WithLabelValues("top_up", outcomeLabel(err)).Inc()
	if err != nil {
		s.LogError(ctx, err, "Top-up failed",
			slog.String("account_id", accountID),
			slog.String("amount", amount.String()))
		return nil, err
	}
	s.LogInfo(ctx, "Top-up applied",
		slog.String("account_id", accountID),
		slog.String("amount", amount.String()),
		slog.String("balance", updated.Balance.String()))
	return &updated, nil
}

func (s *ledgerService) topUp(ctx context.Context, caller domain.Caller, accountID string, amount decimal.Decimal, out *domain.Account) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := s.requireLedgerOwner(); err != nil {
		return err
	}
	return s.ledger.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, []string{accountID})
		if err != nil {
			return err
		}
		account, ok := locked[accountID]
		if !ok || account.DeletedAt != nil || account.OwnerID != caller.ClientID {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		if account.IsReplica {
			return apperrors.ErrReplicaReadOnly
		}

		now := s.Now()
		payment := s.newPayment(accountID, amount, domain.PaymentTopUp, "", caller.ClientID)
		if _, err := tx.InsertPayments(ctx, []domain.Payment{payment}); err != nil {
			return err
		}
		if err := tx.ApplyBalanceChanges(ctx, map[string]decimal.Decimal{accountID: amount}, caller.ClientID, now); err != nil {
			return err
		}

		account.Balance = account.Balance.Add(amount)
		account.Version++
		account.LastUpdatedAt = now
		account.LastUpdatedBy = caller.ClientID
		*out = account
		return nil
	})
}

func (s *ledgerService) Transfer(ctx context.Context, caller domain.Caller, fromAccountID string, toAccountID string, amount decimal.Decimal) (*domain.TransferResult, error) {
	result, err := s.transfer(ctx, caller, fromAccountID, toAccountID, amount)
	metrics.LedgerOperationsTotal.WithLabelValues("transfer", outcomeLabel(err)).Inc()
	if err != nil {
		s.LogError(ctx, err, "Transfer failed",
			slog.String("from_account_id", fromAccountID),
			slog.String("to_account_id", toAccountID),
			slog.String("amount", amount.String()))
		return nil, err
	}
	s.LogInfo(ctx, "Transfer completed",
		slog.String("transfer_id", result.TransferID),
		slog.String("from_account_id", result.FromAccountID),
		slog.String("to_account_id", result.ToAccountID),
		slog.String("amount", amount.String()),
		slog.Bool("cross_service", result.CrossService))
	return result, nil
}

func (s *ledgerService) transfer(ctx context.Context, caller domain.Caller, fromAccountID, toAccountID string, amount decimal.Decimal) (*domain.TransferResult, error) {
	// Checked before any store access so that invalid amounts never take locks.
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if err := s.requireLedgerOwner(); err != nil {
		return nil, err
	}
	from, err := s.resolveSender(ctx, caller, fromAccountID)
	if err != nil {
		return nil, err
	}

	transferID := uuid.NewString()
	var result *domain.TransferResult
	var receiverOrigin string

	err = s.ledger.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, []string{from, toAccountID})
		if err != nil {
			return err
		}
		sender, receiver, err := checkTransfer(caller, locked, from, toAccountID, amount)
		if err != nil {
			return err
		}

		now := s.Now()
		debit := s.newPayment(from, amount.Neg(), domain.PaymentTransferDebit, transferID, caller.ClientID)
		res := &domain.TransferResult{
			TransferID:    transferID,
			FromAccountID: from,
			ToAccountID:   toAccountID,
			Amount:        amount,
			FromBalance:   sender.Balance.Sub(amount),
		}

		if receiver.IsReplica {
			if s.crossService != CrossServiceSaga || s.owners == nil {
				return fmt.Errorf("%w: account %s is owned by another service", apperrors.ErrForbidden, toAccountID)
			}
			if _, err := tx.InsertPayments(ctx, []domain.Payment{debit}); err != nil {
				return err
			}
			if err := tx.ApplyBalanceChanges(ctx, map[string]decimal.Decimal{from: amount.Neg()}, caller.ClientID, now); err != nil {
				return err
			}
			res.CrossService = true
			res.Payments = []domain.Payment{debit}
			receiverOrigin = receiver.OriginService
			result = res
			return nil
		}

		credit := s.newPayment(toAccountID, amount, domain.PaymentTransferCredit, transferID, caller.ClientID)
		if _, err := tx.InsertPayments(ctx, []domain.Payment{debit, credit}); err != nil {
			return err
		}
		changes := map[string]decimal.Decimal{
			from:        amount.Neg(),
			toAccountID: amount,
		}
		if err := tx.ApplyBalanceChanges(ctx, changes, caller.ClientID, now); err != nil {
			return err
		}
		toBalance := receiver.Balance.Add(amount)
		res.ToBalance = &toBalance
		res.Payments = []domain.Payment{debit, credit}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.CrossService {
		return s.completeSaga(ctx, caller, result, receiverOrigin)
	}
	return result, nil
}

// checkTransfer applies the transfer preconditions in their documented order.
func checkTransfer(caller domain.Caller, locked map[string]domain.Account, from, to string, amount decimal.Decimal) (domain.Account, domain.Account, error) {
	sender, ok := locked[from]
	if !ok || sender.DeletedAt != nil || sender.OwnerID != caller.ClientID {
		return domain.Account{}, domain.Account{}, fmt.Errorf("%w: sender account %s", apperrors.ErrNotFound, from)
	}
	if from == to {
		return domain.Account{}, domain.Account{}, fmt.Errorf("%w: cannot transfer to the same account", apperrors.ErrValidation)
	}
	receiver, ok := locked[to]
	if !ok || receiver.DeletedAt != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("%w: receiver account %s", apperrors.ErrNotFound, to)
	}
	if sender.Blocked {
		return domain.Account{}, domain.Account{}, apperrors.ErrAccountBlocked
	}
	if sender.Balance.LessThan(amount) {
		return domain.Account{}, domain.Account{}, apperrors.ErrInsufficientFunds
	}
	if err := checkAmount(amount); err != nil {
		return domain.Account{}, domain.Account{}, err
	}
	if sender.IsReplica {
		return domain.Account{}, domain.Account{}, apperrors.ErrReplicaReadOnly
	}
	return sender, receiver, nil
}

// resolveSender defaults an empty sender to the caller's only local account.
func (s *ledgerService) resolveSender(ctx context.Context, caller domain.Caller, fromAccountID string) (string, error) {
	if fromAccountID != "" {
		return fromAccountID, nil
	}
	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, caller.ClientID)
	if err != nil {
		return "", err
	}
	var local []domain.Account
	for _, a := range accounts {
		if !a.IsReplica {
			local = append(local, a)
		}
	}
	switch len(local) {
	case 0:
		return "", fmt.Errorf("%w: caller has no account", apperrors.ErrNotFound)
	case 1:
		return local[0].AccountID, nil
	default:
		return "", fmt.Errorf("%w: fromAccountID is required when the caller owns several accounts", apperrors.ErrValidation)
	}
}

// CreditFromTransfer is called by the service that debited the sender. The
// (account, transfer, kind) key makes repeated calls no-ops.
func (s *ledgerService) CreditFromTransfer(ctx context.Context, caller domain.Caller, accountID string, transferID string, amount decimal.Decimal) (*domain.Payment, error) {
	payment, err := s.creditFromTransfer(ctx, caller, accountID, transferID, amount)
	metrics.LedgerOperationsTotal.WithLabelValues("credit", outcomeLabel(err)).Inc()
	if err != nil {
		s.LogError(ctx, err, "Transfer credit failed",
			slog.String("account_id", accountID),
			slog.String("transfer_id", transferID))
		return nil, err
	}
	return payment, nil
}

func (s *ledgerService) creditFromTransfer(ctx context.Context, caller domain.Caller, accountID, transferID string, amount decimal.Decimal) (*domain.Payment, error) {
	if err := s.RequireAdmin(ctx, caller, "credit transfer"); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if transferID == "" {
		return nil, fmt.Errorf("%w: transfer id is required", apperrors.ErrValidation)
	}
	if err := s.requireLedgerOwner(); err != nil {
		return nil, err
	}

	credit := s.newPayment(accountID, amount, domain.PaymentTransferCredit, transferID, caller.ClientID)
	applied := false
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, []string{accountID})
		if err != nil {
			return err
		}
		account, ok := locked[accountID]
		if !ok || account.DeletedAt != nil {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		if account.IsReplica {
			return apperrors.ErrReplicaReadOnly
		}
		n, err := tx.InsertPayments(ctx, []domain.Payment{credit})
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		applied = true
		return tx.ApplyBalanceChanges(ctx, map[string]decimal.Decimal{accountID: amount}, caller.ClientID, s.Now())
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.LogInfo(ctx, "Transfer credit applied",
			slog.String("account_id", accountID),
			slog.String("transfer_id", transferID),
			slog.String("amount", amount.String()))
	} else {
		s.LogInfo(ctx, "Transfer credit already applied",
			slog.String("account_id", accountID),
			slog.String("transfer_id", transferID))
	}
	return &credit, nil
}

func (s *ledgerService) DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, int, error) {
	return s.paymentRepo.SumPaymentsByAccount(ctx, accountID)
}

func (s *ledgerService) VerifyBalance(ctx context.Context, caller domain.Caller, accountID string) (*domain.BalanceCheck, error) {
	if err := s.RequireAdmin(ctx, caller, "verify balance"); err != nil {
		return nil, err
	}
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, count, err := s.DeriveBalance(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to derive balance", slog.String("account_id", accountID))
		return nil, err
	}
	check := &domain.BalanceCheck{
		AccountID:     accountID,
		StoredBalance: account.Balance,
		LedgerBalance: sum,
		PaymentCount:  count,
	}
	if !check.Consistent() {
		s.GetLogger(ctx).Warn("Stored balance differs from ledger",
			slog.String("account_id", accountID),
			slog.String("stored", account.Balance.String()),
			slog.String("ledger", sum.String()),
			slog.Bool("replica", account.IsReplica))
	}
	return check, nil
}

// CorrectPayment deletes a payment and subtracts its amount from the
// account in the same transaction, keeping the balance equal to the ledger.
func (s *ledgerService) CorrectPayment(ctx context.Context, caller domain.Caller, paymentID string) (*domain.Account, error) {
	account, err := s.correctPayment(ctx, caller, paymentID)
	metrics.LedgerOperationsTotal.WithLabelValues("correction", outcomeLabel(err)).Inc()
	if err != nil {
		s.LogError(ctx, err, "Payment correction failed", slog.String("payment_id", paymentID))
		return nil, err
	}
	s.LogInfo(ctx, "Payment removed by correction",
		slog.String("payment_id", paymentID),
		slog.String("account_id", account.AccountID),
		slog.String("balance", account.Balance.String()))
	return account, nil
}

func (s *ledgerService) correctPayment(ctx context.Context, caller domain.Caller, paymentID string) (*domain.Account, error) {
	if err := s.RequireAdmin(ctx, caller, "correct payment"); err != nil {
		return nil, err
	}
	if err := s.requireLedgerOwner(); err != nil {
		return nil, err
	}
	// Read once without locks to learn the account; account locks are always
	// taken before payment locks.
	existing, err := s.paymentRepo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if existing.IsReplica {
		return nil, apperrors.ErrReplicaReadOnly
	}

	var updated domain.Account
	err = s.ledger.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, []string{existing.AccountID})
		if err != nil {
			return err
		}
		account, ok := locked[existing.AccountID]
		if !ok {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, existing.AccountID)
		}
		if account.IsReplica {
			return apperrors.ErrReplicaReadOnly
		}
		payment, err := tx.FindPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.AccountID != account.AccountID {
			return fmt.Errorf("%w: payment %s", apperrors.ErrNotFound, paymentID)
		}
		if err := tx.DeletePayment(ctx, paymentID); err != nil {
			return err
		}
		now := s.Now()
		if err := tx.ApplyBalanceChanges(ctx, map[string]decimal.Decimal{account.AccountID: payment.Amount.Neg()}, caller.ClientID, now); err != nil {
			return err
		}
		account.Balance = account.Balance.Sub(payment.Amount)
		account.Version++
		account.LastUpdatedAt = now
		account.LastUpdatedBy = caller.ClientID
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// outcomeLabel maps an operation error to a low-cardinality metrics label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, apperrors.ErrAccountBlocked):
		return "blocked"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrContention):
		return "contention"
	case errors.Is(err, apperrors.ErrPartiallyFailed):
		return "partially_failed"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
