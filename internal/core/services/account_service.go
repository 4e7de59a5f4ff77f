package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/core/policy"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/metrics"
	"github.com/google/uuid"
)

// adminListLimit caps the per-caller listings admins get on the non-/all routes.
const adminListLimit = 1000

type accountService struct {
	BaseService
	accountRepo           portsrepo.AccountRepositoryFacade
	ledger                portsrepo.LedgerStore
	replicas              portssvc.ReplicaSvcFacade
	serviceName           string
	ownsAccounts          bool
	singleAccountPerOwner bool
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountReplicas makes account listings refresh replicas from the owner first.
func WithAccountReplicas(replicas portssvc.ReplicaSvcFacade) AccountServiceOption {
	return func(s *accountService) {
		s.replicas = replicas
	}
}

// WithSingleAccountPerOwner toggles the one-live-account-per-owner rule.
func WithSingleAccountPerOwner(enabled bool) AccountServiceOption {
	return func(s *accountService) {
		s.singleAccountPerOwner = enabled
	}
}

// WithAccountOwnership records whether this service is authoritative for accounts.
func WithAccountOwnership(serviceName string, owns bool) AccountServiceOption {
	return func(s *accountService) {
		s.serviceName = serviceName
		s.ownsAccounts = owns
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, ledger portsrepo.LedgerStore, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo:           accountRepo,
		ledger:                ledger,
		ownsAccounts:          true,
		singleAccountPerOwner: true,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, caller domain.Caller, req dto.CreateAccountRequest) (*domain.Account, error) {
	if !s.ownsAccounts {
		return nil, fmt.Errorf("%w: accounts are owned by another service", apperrors.ErrReplicaReadOnly)
	}
	ownerID := caller.ClientID
	if req.OwnerID != "" && req.OwnerID != caller.ClientID {
		if !caller.IsAdmin() {
			return nil, fmt.Errorf("%w: only admins may open accounts for other clients", apperrors.ErrForbidden)
		}
		ownerID = req.OwnerID
	}

	now := s.Now()
	account := domain.Account{
		AccountID: uuid.NewString(),
		OwnerID:   ownerID,
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

	err := s.ledger.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if err := tx.LockClient(ctx, ownerID); err != nil {
			return err
		}
		if s.singleAccountPerOwner {
			n, err := tx.CountLiveAccountsByOwner(ctx, ownerID)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperrors.ErrDuplicateAccount
			}
		}
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create account", slog.String("owner_id", ownerID))
		return nil, err
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("owner_id", ownerID))
	return &account, nil
}

func (s *accountService) GetAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !policy.Visible(caller.Role, caller.ClientID, account.OwnerID) {
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, caller domain.Caller) (*dto.ListAccountsResponse, error) {
	stale, err := resolveForRead(ctx, s.replicas, caller, domain.CollectionAccounts)
	if err != nil {
		return nil, err
	}

	var accounts []domain.Account
	if caller.IsAdmin() {
		accounts, err = s.accountRepo.ListAccounts(ctx, adminListLimit, 0, false)
	} else {
		accounts, err = s.accountRepo.ListAccountsByOwner(ctx, caller.ClientID)
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts", slog.String("client_id", caller.ClientID))
		return nil, err
	}
	accounts = policy.Filter(caller, accounts, policy.AccountOwner)

	return &dto.ListAccountsResponse{
		Accounts: dto.ToListAccountResponse(accounts),
		Stale:    stale,
	}, nil
}

func (s *accountService) ListAllAccounts(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.Account, error) {
	if err := s.RequireAdmin(ctx, caller, "list all accounts"); err != nil {
		return nil, err
	}
	return s.accountRepo.ListAccounts(ctx, params.Limit, params.Offset, params.IncludeDeleted)
}

func (s *accountService) BlockAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error) {
	if err := s.RequireAdmin(ctx, caller, "block account"); err != nil {
		return nil, err
	}
	return s.transition(ctx, caller, accountID, domain.AccountBlocked)
}

func (s *accountService) UnblockAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error) {
	if err := s.RequireAdmin(ctx, caller, "unblock account"); err != nil {
		return nil, err
	}
	return s.transition(ctx, caller, accountID, domain.AccountActive)
}

// DeleteAccount is allowed for the owner and for admins. Deletion is soft;
// payments stay in the ledger.
func (s *accountService) DeleteAccount(ctx context.Context, caller domain.Caller, accountID string) error {
	_, err := s.transition(ctx, caller, accountID, domain.AccountDeleted)
	return err
}

func (s *accountService) transition(ctx context.Context, caller domain.Caller, accountID string, to domain.AccountStatus) (*domain.Account, error) {
	var updated domain.Account
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, []string{accountID})
		if err != nil {
			return err
		}
		account, ok := locked[accountID]
		if !ok || account.DeletedAt != nil || !policy.Visible(caller.Role, caller.ClientID, account.OwnerID) {
			return apperrors.ErrNotFound
		}
		if account.IsReplica {
			return apperrors.ErrReplicaReadOnly
		}
		if err := account.Transition(to, s.Now()); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		account.LastUpdatedBy = caller.ClientID
		if err := tx.UpdateAccountState(ctx, account); err != nil {
			return err
		}
		account.Version++
		updated = account
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to change account state",
				slog.String("account_id", accountID),
				slog.String("target_status", string(to)))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Account state changed",
		slog.String("account_id", accountID),
		slog.String("status", string(updated.Status())))
	return &updated, nil
}

// resolveForRead refreshes a replicated collection before a read. When the
// owner is unreachable the read continues on the local snapshot and the
// result is reported as stale; other errors abort the read.
func resolveForRead(ctx context.Context, replicas portssvc.ReplicaSvcFacade, caller domain.Caller, collection domain.Collection) (bool, error) {
	if replicas == nil {
		return false, nil
	}
	_, err := replicas.ResolveRemote(ctx, collection, caller)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		metrics.ReplicaResolutionsTotal.WithLabelValues(string(collection), "stale").Inc()
		return true, nil
	default:
		return false, err
	}
}

// resolveForWrite refreshes a replicated collection before a mutation. Stale
// data is never acceptable here, so every error is returned.
func resolveForWrite(ctx context.Context, replicas portssvc.ReplicaSvcFacade, caller domain.Caller, collection domain.Collection) error {
	if replicas == nil {
		return nil
	}
	_, err := replicas.ResolveRemote(ctx, collection, caller)
	return err
}
