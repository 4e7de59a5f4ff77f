package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/core/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func futureExpiry() string {
	return time.Now().UTC().AddDate(2, 0, 0).Format("01/06")
}

func TestCreateCard(t *testing.T) {
	ctx := context.Background()
	b := newBank()
	acc := b.open(t, alice, "0")
	cards := services.NewCreditCardService(b.store, b.store)

	card, err := cards.CreateCard(ctx, alice, dto.CreateCreditCardRequest{
		AccountID: acc, Number: "4242424242424242", Expiry: futureExpiry(), CVV: "123",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "123", card.CVVHash)
	assert.True(t, utils.CheckSecretHash("123", card.CVVHash))
	assert.False(t, card.IsReplica)

	list, err := cards.ListCards(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list.CreditCards, 1)
	assert.Equal(t, "************4242", list.CreditCards[0].Number)

	other, err := cards.ListCards(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, other.CreditCards)

	all, err := cards.ListCards(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all.CreditCards, 1)
}

func TestCreateCard_Rejections(t *testing.T) {
	ctx := context.Background()
	b := newBank()
	acc := b.open(t, alice, "0")
	cards := services.NewCreditCardService(b.store, b.store)

	tests := []struct {
		name    string
		caller  domain.Caller
		req     dto.CreateCreditCardRequest
		wantErr error
	}{
		{
			name:    "malformed expiry",
			caller:  alice,
			req:     dto.CreateCreditCardRequest{AccountID: acc, Number: "4242424242424242", Expiry: "13/30", CVV: "123"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "expired card",
			caller:  alice,
			req:     dto.CreateCreditCardRequest{AccountID: acc, Number: "4242424242424242", Expiry: "01/20", CVV: "123"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "account of another client",
			caller:  bob,
			req:     dto.CreateCreditCardRequest{AccountID: acc, Number: "4242424242424242", Expiry: futureExpiry(), CVV: "123"},
			wantErr: apperrors.ErrNotFound,
		},
		{
			name:    "unknown account",
			caller:  alice,
			req:     dto.CreateCreditCardRequest{AccountID: "missing", Number: "4242424242424242", Expiry: futureExpiry(), CVV: "123"},
			wantErr: apperrors.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cards.CreateCard(ctx, tt.caller, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateCard_PullsUnknownAccountFromOwner(t *testing.T) {
	ctx := context.Background()
	b := newBank()
	replicas := new(MockReplicaService)
	cards := services.NewCreditCardService(b.store, b.store, services.WithCardReplicas(replicas))

	replicas.On("ResolveRemote", mock.Anything, domain.CollectionAccounts, alice).
		Run(func(mock.Arguments) {
			_, err := b.store.UpsertAccounts(ctx, "accounts-svc", []domain.Account{wireAccount("remote-1", alice.ClientID, "0", 1)}, time.Now())
			require.NoError(t, err)
		}).
		Return(domain.CollectionSyncResult{Collection: domain.CollectionAccounts, Fetched: 1, Upserted: 1}, nil).Once()

	card, err := cards.CreateCard(ctx, alice, dto.CreateCreditCardRequest{
		AccountID: "remote-1", Number: "4000000000000002", Expiry: futureExpiry(), CVV: "999",
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-1", card.AccountID)
	replicas.AssertExpectations(t)
}

func TestCreateCard_OwnerUnreachable(t *testing.T) {
	b := newBank()
	replicas := new(MockReplicaService)
	replicas.On("ResolveRemote", mock.Anything, domain.CollectionAccounts, alice).
		Return(domain.CollectionSyncResult{}, apperrors.ErrUpstreamUnavailable)
	cards := services.NewCreditCardService(b.store, b.store, services.WithCardReplicas(replicas))

	_, err := cards.CreateCard(context.Background(), alice, dto.CreateCreditCardRequest{
		AccountID: "remote-1", Number: "4000000000000002", Expiry: futureExpiry(), CVV: "999",
	})
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestUpdateAndDeleteCard(t *testing.T) {
	ctx := context.Background()
	b := newBank()
	acc := b.open(t, alice, "0")
	cards := services.NewCreditCardService(b.store, b.store)

	card, err := cards.CreateCard(ctx, alice, dto.CreateCreditCardRequest{
		AccountID: acc, Number: "4242424242424242", Expiry: futureExpiry(), CVV: "123",
	})
	require.NoError(t, err)

	number := "5555555555554444"
	_, err = cards.UpdateCard(ctx, bob, card.CardID, dto.UpdateCreditCardRequest{Number: &number})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	updated, err := cards.UpdateCard(ctx, alice, card.CardID, dto.UpdateCreditCardRequest{Number: &number})
	require.NoError(t, err)
	assert.Equal(t, number, updated.Number)
	assert.Equal(t, card.Version+1, updated.Version)

	expired := "01/20"
	_, err = cards.UpdateCard(ctx, alice, card.CardID, dto.UpdateCreditCardRequest{Expiry: &expired})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.ErrorIs(t, cards.DeleteCard(ctx, bob, card.CardID), apperrors.ErrNotFound)
	require.NoError(t, cards.DeleteCard(ctx, alice, card.CardID))
	assert.ErrorIs(t, cards.DeleteCard(ctx, alice, card.CardID), apperrors.ErrNotFound)

	_, err = cards.ListAllCards(ctx, alice, dto.ListParams{Limit: 10})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	all, err := cards.ListAllCards(ctx, admin, dto.ListParams{Limit: 10, IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].DeletedAt)
}

func TestCreditCards_ReadOnlyWhenOwnedElsewhere(t *testing.T) {
	b := newBank()
	acc := b.open(t, alice, "0")
	cards := services.NewCreditCardService(b.store, b.store, services.WithCardOwnership("accounts", false))

	_, err := cards.CreateCard(context.Background(), alice, dto.CreateCreditCardRequest{
		AccountID: acc, Number: "4242424242424242", Expiry: futureExpiry(), CVV: "123",
	})
	assert.ErrorIs(t, err, apperrors.ErrReplicaReadOnly)
}
