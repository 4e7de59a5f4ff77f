package policy_test

import (
	"testing"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/core/policy"
	"github.com/stretchr/testify/assert"
)

func TestVisible(t *testing.T) {
	assert.True(t, policy.Visible(domain.RoleAdmin, "a", "b"))
	assert.True(t, policy.Visible(domain.RoleClient, "a", "a"))
	assert.False(t, policy.Visible(domain.RoleClient, "a", "b"))
	assert.False(t, policy.Visible(domain.RoleClient, "", ""))
}

func TestFilter_PaymentsThroughAccounts(t *testing.T) {
	owners := map[string]string{"acc-1": "alice", "acc-2": "bob"}
	payments := []domain.Payment{
		{PaymentID: "p1", AccountID: "acc-1"},
		{PaymentID: "p2", AccountID: "acc-2"},
		{PaymentID: "p3", AccountID: "acc-unknown"},
	}
	ownerOf := policy.ByAccount(owners, func(p domain.Payment) string { return p.AccountID })

	alice := domain.Caller{ClientID: "alice", Role: domain.RoleClient}
	got := policy.Filter(alice, payments, ownerOf)
	assert.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PaymentID)

	admin := domain.Caller{ClientID: "root", Role: domain.RoleAdmin}
	assert.Len(t, policy.Filter(admin, payments, ownerOf), 3)
}

func TestFilter_Accounts(t *testing.T) {
	accounts := []domain.Account{{AccountID: "1", OwnerID: "alice"}, {AccountID: "2", OwnerID: "bob"}}
	bob := domain.Caller{ClientID: "bob", Role: domain.RoleClient}
	got := policy.Filter(bob, accounts, policy.AccountOwner)
	assert.Equal(t, []domain.Account{{AccountID: "2", OwnerID: "bob"}}, got)
}
