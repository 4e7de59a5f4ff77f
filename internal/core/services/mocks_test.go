package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/core/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock OwnerClient ---
type MockOwnerClient struct {
	mock.Mock
}

func (m *MockOwnerClient) Origin(collection domain.Collection) (string, bool) {
	args := m.Called(collection)
	return args.String(0), args.Bool(1)
}

func (m *MockOwnerClient) FetchCollection(ctx context.Context, collection domain.Collection, scope portsup.FetchScope) (domain.ReplicaBatch, error) {
	args := m.Called(ctx, collection, scope)
	return args.Get(0).(domain.ReplicaBatch), args.Error(1)
}

func (m *MockOwnerClient) CreditAccount(ctx context.Context, origin string, accountID string, transferID string, amount decimal.Decimal) error {
	args := m.Called(ctx, origin, accountID, transferID, amount)
	return args.Error(0)
}

// --- Mock IdentityProvider ---
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Verify(ctx context.Context, token string) (domain.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *MockIdentityProvider) Profile(ctx context.Context, token string, identity domain.Identity) (domain.Client, error) {
	args := m.Called(ctx, token, identity)
	return args.Get(0).(domain.Client), args.Error(1)
}

// --- Mock ReplicaSvcFacade ---
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

// --- Fixtures ---

var (
	alice = domain.Caller{ClientID: "client-alice", Username: "alice", Role: domain.RoleClient, Token: "token-alice"}
	bob   = domain.Caller{ClientID: "client-bob", Username: "bob", Role: domain.RoleClient, Token: "token-bob"}
	admin = domain.Caller{ClientID: "client-admin", Username: "root", Role: domain.RoleAdmin, Token: "token-admin"}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// bank is a single-service setup over the in-memory store.
type bank struct {
	store    *memory.Store
	accounts portssvc.AccountSvcFacade
	ledger   portssvc.LedgerSvcFacade
	payments portssvc.PaymentSvcFacade
}

func newBank(ledgerOpts ...services.LedgerServiceOption) *bank {
	store := memory.NewStore()
	return &bank{
		store:    store,
		accounts: services.NewAccountService(store, store, services.WithAccountOwnership("bank", true)),
		ledger: services.NewLedgerService(store, store, store,
			append([]services.LedgerServiceOption{services.WithLedgerOwnership("bank", true)}, ledgerOpts...)...),
		payments: services.NewPaymentService(store, store),
	}
}

// open creates an account for the caller and tops it up when balance > 0.
func (b *bank) open(t *testing.T, caller domain.Caller, balance string) string {
	t.Helper()
	ctx := context.Background()
	acc, err := b.accounts.CreateAccount(ctx, caller, dto.CreateAccountRequest{})
	require.NoError(t, err)
	if amount := dec(balance); amount.IsPositive() {
		_, err = b.ledger.TopUp(ctx, caller, acc.AccountID, amount)
		require.NoError(t, err)
	}
	return acc.AccountID
}

func (b *bank) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	acc, err := b.store.FindAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

// requireConsistent checks the stored balance against the ledger sum.
func (b *bank) requireConsistent(t *testing.T, accountID string) {
	t.Helper()
	check, err := b.ledger.VerifyBalance(context.Background(), admin, accountID)
	require.NoError(t, err)
	require.True(t, check.Consistent(), "stored %s, ledger %s", check.StoredBalance, check.LedgerBalance)
}
