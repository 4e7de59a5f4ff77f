package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Transition(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		start   domain.Account
		to      domain.AccountStatus
		want    domain.AccountStatus
		wantErr bool
	}{
		{name: "block active", start: domain.Account{}, to: domain.AccountBlocked, want: domain.AccountBlocked},
		{name: "unblock blocked", start: domain.Account{Blocked: true}, to: domain.AccountActive, want: domain.AccountActive},
		{name: "delete blocked", start: domain.Account{Blocked: true}, to: domain.AccountDeleted, want: domain.AccountDeleted},
		{name: "delete active", start: domain.Account{}, to: domain.AccountDeleted, want: domain.AccountDeleted},
		{name: "deleted is terminal", start: domain.Account{DeletedAt: &now}, to: domain.AccountActive, want: domain.AccountDeleted, wantErr: true},
		{name: "unknown target", start: domain.Account{}, to: domain.AccountStatus("FROZEN"), want: domain.AccountActive, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := tt.start
			err := acc.Transition(tt.to, now)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, now, acc.LastUpdatedAt)
			}
			assert.Equal(t, tt.want, acc.Status())
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := domain.ParseRole("admin")
	require.NoError(t, err)
	assert.True(t, r.IsAdmin())

	r, err = domain.ParseRole("client")
	require.NoError(t, err)
	assert.False(t, r.IsAdmin())

	_, err = domain.ParseRole("Admin")
	assert.Error(t, err)
}

func TestCreditCard_MaskedNumber(t *testing.T) {
	assert.Equal(t, "************4242", domain.CreditCard{Number: "4242424242424242"}.MaskedNumber())
	assert.Equal(t, "123", domain.CreditCard{Number: "123"}.MaskedNumber())
}

func TestSyncReport_Partial(t *testing.T) {
	report := domain.SyncReport{Collections: []domain.CollectionSyncResult{
		{Collection: domain.CollectionClients, Fetched: 2, Upserted: 2},
		{Collection: domain.CollectionPayments, Error: "upstream service unavailable"},
	}}
	assert.True(t, report.Partial())
	assert.Equal(t, []domain.Collection{domain.CollectionPayments}, report.FailedCollections())
}
