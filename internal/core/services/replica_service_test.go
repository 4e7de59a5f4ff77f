package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/core/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ReplicaServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	owners    *MockOwnerClient
	freshness *memory.FreshnessTracker
	svc       portssvc.ReplicaSvcFacade
}

func (s *ReplicaServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.owners = new(MockOwnerClient)
	s.freshness = memory.NewFreshnessTracker(time.Minute, nil)
	s.svc = services.NewReplicaService(s.owners, s.store, s.freshness,
		services.WithOwnedCollections(domain.CollectionCreditCards),
		services.WithReplicaRetryPolicy(services.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}),
	)
	s.owners.On("Origin", domain.CollectionAccounts).Return("accounts-svc", true).Maybe()
	s.owners.On("Origin", domain.CollectionClients).Return(domain.IdentityOrigin, true).Maybe()
	s.owners.On("Origin", domain.CollectionPayments).Return("", false).Maybe()
}

func TestReplicaServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReplicaServiceTestSuite))
}

func accountsBatch(accounts ...domain.Account) domain.ReplicaBatch {
	return domain.ReplicaBatch{Collection: domain.CollectionAccounts, Origin: "accounts-svc", Accounts: accounts}
}

func wireAccount(id, owner, balance string, version int64) domain.Account {
	now := time.Now().UTC()
	return domain.Account{
		AccountID:   id,
		OwnerID:     owner,
		Balance:     dec(balance),
		ReplicaMeta: domain.ReplicaMeta{Version: version},
		AuditFields: domain.AuditFields{CreatedAt: now, LastUpdatedAt: now},
	}
}

func (s *ReplicaServiceTestSuite) TestSkipsOwnedAndUnconfiguredCollections() {
	res, err := s.svc.ResolveRemote(s.ctx, domain.CollectionCreditCards, alice)
	s.Require().NoError(err)
	s.Equal(services.SkipOwnedLocally, res.Skipped)

	res, err = s.svc.ResolveRemote(s.ctx, domain.CollectionPayments, alice)
	s.Require().NoError(err)
	s.Equal(services.SkipNoUpstream, res.Skipped)

	anonymous := alice
	anonymous.Token = ""
	res, err = s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, anonymous)
	s.Require().NoError(err)
	s.Equal(services.SkipNoToken, res.Skipped)

	s.owners.AssertNotCalled(s.T(), "FetchCollection", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReplicaServiceTestSuite) TestResolveRemote_PullsOnceWithinStalenessWindow() {
	scope := portsup.FetchScope{Token: alice.Token}
	s.owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts, scope).
		Return(accountsBatch(wireAccount("acc-1", alice.ClientID, "10", 1)), nil).Once()

	res, err := s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, alice)
	s.Require().NoError(err)
	s.Equal(1, res.Fetched)
	s.Equal(1, res.Upserted)

	res, err = s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, alice)
	s.Require().NoError(err)
	s.Equal(services.SkipFresh, res.Skipped)
	s.owners.AssertNumberOfCalls(s.T(), "FetchCollection", 1)

	acc, err := s.store.FindAccountByID(s.ctx, "acc-1")
	s.Require().NoError(err)
	s.True(acc.IsReplica)
	s.Equal("accounts-svc", acc.OriginService)
	s.NotNil(acc.LastSyncedAt)
}

func (s *ReplicaServiceTestSuite) TestResolveRemote_FreshnessIsPerCaller() {
	s.owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts, mock.Anything).
		Return(accountsBatch(), nil)

	_, err := s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, alice)
	s.Require().NoError(err)
	_, err = s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, bob)
	s.Require().NoError(err)
	_, err = s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, admin)
	s.Require().NoError(err)

	s.owners.AssertNumberOfCalls(s.T(), "FetchCollection", 3)
	s.owners.AssertCalled(s.T(), "FetchCollection", mock.Anything, domain.CollectionAccounts,
		portsup.FetchScope{Token: admin.Token, All: true})
}

func (s *ReplicaServiceTestSuite) TestResolveRemote_RetriesUnavailableOwner() {
	s.owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts, mock.Anything).
		Return(domain.ReplicaBatch{}, apperrors.ErrUpstreamUnavailable)

	res, err := s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, alice)
	s.ErrorIs(err, apperrors.ErrUpstreamUnavailable)
	s.NotEmpty(res.Error)
	s.owners.AssertNumberOfCalls(s.T(), "FetchCollection", 3)

	fresh, err := s.freshness.IsFresh(s.ctx, "accounts:client:"+alice.ClientID)
	s.Require().NoError(err)
	s.False(fresh)
}

func (s *ReplicaServiceTestSuite) TestResolveRemote_DoesNotRetryRejection() {
	s.owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts, mock.Anything).
		Return(domain.ReplicaBatch{}, apperrors.ErrForbidden)

	_, err := s.svc.ResolveRemote(s.ctx, domain.CollectionAccounts, alice)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.owners.AssertNumberOfCalls(s.T(), "FetchCollection", 1)
}

func (s *ReplicaServiceTestSuite) TestRefresh_Idempotent() {
	batch := accountsBatch(
		wireAccount("acc-1", alice.ClientID, "10", 2),
		wireAccount("acc-2", bob.ClientID, "20", 1),
	)
	s.owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts,
		portsup.FetchScope{Token: admin.Token, All: true, IncludeDeleted: true}).Return(batch, nil)

	first, err := s.svc.Refresh(s.ctx, domain.CollectionAccounts, admin)
	s.Require().NoError(err)
	s.Equal(2, first.Upserted)

	second, err := s.svc.Refresh(s.ctx, domain.CollectionAccounts, admin)
	s.Require().NoError(err)
	s.Equal(2, second.Fetched)
	s.owners.AssertNumberOfCalls(s.T(), "FetchCollection", 2)

	all, err := s.store.ListAccounts(s.ctx, 100, 0, true)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ReplicaServiceTestSuite) TestRefresh_RequiresAdmin() {
	_, err := s.svc.Refresh(s.ctx, domain.CollectionAccounts, alice)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func TestReplica_AuthoritativeRowsNeverOverwritten(t *testing.T) {
	ctx := context.Background()
	b := newBank()
	acc := b.open(t, alice, "40")

	owners := new(MockOwnerClient)
	owners.On("Origin", domain.CollectionAccounts).Return("accounts-svc", true)
	owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts, mock.Anything).
		Return(accountsBatch(wireAccount(acc, bob.ClientID, "1000", 99)), nil)

	replicas := services.NewReplicaService(owners, b.store, memory.NewFreshnessTracker(time.Minute, nil))
	res, err := replicas.Refresh(ctx, domain.CollectionAccounts, admin)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upserted)

	stored, err := b.store.FindAccountByID(ctx, acc)
	require.NoError(t, err)
	assert.False(t, stored.IsReplica)
	assert.Equal(t, alice.ClientID, stored.OwnerID)
	assert.True(t, dec("40").Equal(stored.Balance))
}

func TestReplica_OlderVersionIgnored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owners := new(MockOwnerClient)
	owners.On("Origin", domain.CollectionAccounts).Return("accounts-svc", true)
	owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts, mock.Anything).
		Return(accountsBatch(wireAccount("acc-1", alice.ClientID, "30", 3)), nil).Once()
	owners.On("FetchCollection", mock.Anything, domain.CollectionAccounts, mock.Anything).
		Return(accountsBatch(wireAccount("acc-1", alice.ClientID, "10", 2)), nil).Once()

	replicas := services.NewReplicaService(owners, store, memory.NewFreshnessTracker(time.Minute, nil))
	_, err := replicas.Refresh(ctx, domain.CollectionAccounts, admin)
	require.NoError(t, err)
	_, err = replicas.Refresh(ctx, domain.CollectionAccounts, admin)
	require.NoError(t, err)

	stored, err := store.FindAccountByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Version)
	assert.True(t, dec("30").Equal(stored.Balance))
}

func TestSyncAll_ReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	replicas := new(MockReplicaService)
	replicas.On("Refresh", mock.Anything, domain.CollectionClients, admin).
		Return(domain.CollectionSyncResult{Collection: domain.CollectionClients, Fetched: 2, Upserted: 2}, nil)
	replicas.On("Refresh", mock.Anything, domain.CollectionAccounts, admin).
		Return(domain.CollectionSyncResult{Collection: domain.CollectionAccounts, Skipped: services.SkipOwnedLocally}, nil)
	replicas.On("Refresh", mock.Anything, domain.CollectionCreditCards, admin).
		Return(domain.CollectionSyncResult{Collection: domain.CollectionCreditCards}, apperrors.ErrUpstreamUnavailable)
	replicas.On("Refresh", mock.Anything, domain.CollectionPayments, admin).
		Return(domain.CollectionSyncResult{Collection: domain.CollectionPayments, Fetched: 1}, nil)

	sync := services.NewSyncService(replicas)
	report, err := sync.SyncAll(ctx, admin)
	require.NoError(t, err)

	require.Len(t, report.Collections, 4)
	for i, c := range domain.SyncOrder {
		assert.Equal(t, c, report.Collections[i].Collection)
	}
	assert.True(t, report.Partial())
	assert.Equal(t, []domain.Collection{domain.CollectionCreditCards}, report.FailedCollections())
	assert.Equal(t, apperrors.ErrUpstreamUnavailable.Error(), report.Collections[2].Error)
	replicas.AssertExpectations(t)

	_, err = sync.SyncAll(ctx, alice)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestListAccounts_FallsBackToSnapshotWhenOwnerDown(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := store.UpsertAccounts(ctx, "accounts-svc", []domain.Account{wireAccount("acc-1", alice.ClientID, "10", 1)}, time.Now())
	require.NoError(t, err)

	replicas := new(MockReplicaService)
	accounts := services.NewAccountService(store, store,
		services.WithAccountReplicas(replicas),
		services.WithAccountOwnership("cards", false))

	replicas.On("ResolveRemote", mock.Anything, domain.CollectionAccounts, alice).
		Return(domain.CollectionSyncResult{}, apperrors.ErrUpstreamUnavailable).Once()
	resp, err := accounts.ListAccounts(ctx, alice)
	require.NoError(t, err)
	assert.True(t, resp.Stale)
	require.Len(t, resp.Accounts, 1)
	assert.True(t, resp.Accounts[0].IsReplica)

	replicas.On("ResolveRemote", mock.Anything, domain.CollectionAccounts, alice).
		Return(domain.CollectionSyncResult{}, errors.New("boom")).Once()
	_, err = accounts.ListAccounts(ctx, alice)
	assert.Error(t, err)

	_, err = accounts.CreateAccount(ctx, alice, dto.CreateAccountRequest{})
	assert.ErrorIs(t, err, apperrors.ErrReplicaReadOnly)
	_, err = accounts.BlockAccount(ctx, admin, "acc-1")
	assert.ErrorIs(t, err, apperrors.ErrReplicaReadOnly)
}
