package handlers_test

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock IdentityService ---
type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Authenticate(ctx context.Context, token string) (domain.Caller, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Caller), args.Error(1)
}
func (m *MockIdentityService) GetOrCreateClient(ctx context.Context, token string, identity domain.Identity) (*domain.Client, error) {
	args := m.Called(ctx, token, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}
func (m *MockIdentityService) GetClient(ctx context.Context, caller domain.Caller) (*domain.Client, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}
func (m *MockIdentityService) ListClients(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.Client, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Client), args.Error(1)
}
func (m *MockIdentityService) DeleteClient(ctx context.Context, caller domain.Caller, clientID string) error {
	return m.Called(ctx, caller, clientID).Error(0)
}

var _ portssvc.IdentitySvcFacade = (*MockIdentityService)(nil)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, caller, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) ListAccounts(ctx context.Context, caller domain.Caller) (*dto.ListAccountsResponse, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListAccountsResponse), args.Error(1)
}
func (m *MockAccountService) ListAllAccounts(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.Account, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockAccountService) CreateAccount(ctx context.Context, caller domain.Caller, req dto.CreateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) BlockAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, caller, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) UnblockAccount(ctx context.Context, caller domain.Caller, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, caller, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) DeleteAccount(ctx context.Context, caller domain.Caller, accountID string) error {
	return m.Called(ctx, caller, accountID).Error(0)
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) TopUp(ctx context.Context, caller domain.Caller, accountID string, amount decimal.Decimal) (*domain.Account, error) {
	args := m.Called(ctx, caller, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockLedgerService) Transfer(ctx context.Context, caller domain.Caller, fromAccountID string, toAccountID string, amount decimal.Decimal) (*domain.TransferResult, error) {
	args := m.Called(ctx, caller, fromAccountID, toAccountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}
func (m *MockLedgerService) CreditFromTransfer(ctx context.Context, caller domain.Caller, accountID string, transferID string, amount decimal.Decimal) (*domain.Payment, error) {
	args := m.Called(ctx, caller, accountID, transferID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockLedgerService) DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, int, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Int(1), args.Error(2)
}
func (m *MockLedgerService) VerifyBalance(ctx context.Context, caller domain.Caller, accountID string) (*domain.BalanceCheck, error) {
	args := m.Called(ctx, caller, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceCheck), args.Error(1)
}
func (m *MockLedgerService) CorrectPayment(ctx context.Context, caller domain.Caller, paymentID string) (*domain.Account, error) {
	args := m.Called(ctx, caller, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock PaymentService ---
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) ListPayments(ctx context.Context, caller domain.Caller, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListPaymentsResponse), args.Error(1)
}
func (m *MockPaymentService) ListAllPayments(ctx context.Context, caller domain.Caller, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListPaymentsResponse), args.Error(1)
}

var _ portssvc.PaymentSvcFacade = (*MockPaymentService)(nil)

// --- Mock CreditCardService ---
type MockCreditCardService struct {
	mock.Mock
}

func (m *MockCreditCardService) CreateCard(ctx context.Context, caller domain.Caller, req dto.CreateCreditCardRequest) (*domain.CreditCard, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditCard), args.Error(1)
}
func (m *MockCreditCardService) ListCards(ctx context.Context, caller domain.Caller) (*dto.ListCreditCardsResponse, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListCreditCardsResponse), args.Error(1)
}
func (m *MockCreditCardService) ListAllCards(ctx context.Context, caller domain.Caller, params dto.ListParams) ([]domain.CreditCard, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CreditCard), args.Error(1)
}
func (m *MockCreditCardService) UpdateCard(ctx context.Context, caller domain.Caller, cardID string, req dto.UpdateCreditCardRequest) (*domain.CreditCard, error) {
	args := m.Called(ctx, caller, cardID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditCard), args.Error(1)
}
func (m *MockCreditCardService) DeleteCard(ctx context.Context, caller domain.Caller, cardID string) error {
	return m.Called(ctx, caller, cardID).Error(0)
}

var _ portssvc.CreditCardSvcFacade = (*MockCreditCardService)(nil)

// --- Mock ReplicaService / SyncService ---
type MockReplicaService struct {
	mock.Mock
}

func (m *MockReplicaService) ResolveRemote(ctx context.Context, collection domain.Collection, caller domain.Caller) (domain.CollectionSyncResult, error) {
	args := m.Called(ctx, collection, caller)
	return args.Get(0).(domain.CollectionSyncResult), args.Error(1)
}
func (m *MockReplicaService) Refresh(ctx context.Context, collection domain.Collection, caller domain.Caller) (domain.CollectionSyncResult, error) {
	args := m.Called(ctx, collection, caller)
	return args.Get(0).(domain.CollectionSyncResult), args.Error(1)
}

var _ portssvc.ReplicaSvcFacade = (*MockReplicaService)(nil)

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncAll(ctx context.Context, caller domain.Caller) (*domain.SyncReport, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncReport), args.Error(1)
}

var _ portssvc.SyncSvcFacade = (*MockSyncService)(nil)
