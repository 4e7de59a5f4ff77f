package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPayments_PagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	b := newBank()
	acc := b.open(t, alice, "0")
	for range 5 {
		_, err := b.ledger.TopUp(ctx, alice, acc, dec("1"))
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var token *string
	pages := 0
	for {
		resp, err := b.payments.ListPayments(ctx, alice, dto.ListPaymentsParams{Limit: 2, NextToken: token})
		require.NoError(t, err)
		pages++
		for i, p := range resp.Payments {
			assert.False(t, seen[p.PaymentID], "payment %s returned twice", p.PaymentID)
			seen[p.PaymentID] = true
			if i > 0 {
				prev := resp.Payments[i-1]
				assert.False(t, p.CreatedAt.After(prev.CreatedAt))
			}
		}
		if resp.NextToken == nil {
			break
		}
		token = resp.NextToken
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)
}

func TestListPayments_CallerIsolation(t *testing.T) {
	ctx := context.Background()
	b := newBank()
	a := b.open(t, alice, "10")
	c := b.open(t, bob, "20")

	mine, err := b.payments.ListPayments(ctx, alice, dto.ListPaymentsParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, mine.Payments, 1)
	assert.Equal(t, a, mine.Payments[0].AccountID)

	_, err = b.payments.ListPayments(ctx, alice, dto.ListPaymentsParams{Limit: 10, AccountID: c})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	all, err := b.payments.ListPayments(ctx, admin, dto.ListPaymentsParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Payments, 2)

	one, err := b.payments.ListAllPayments(ctx, admin, dto.ListPaymentsParams{Limit: 10, AccountID: c})
	require.NoError(t, err)
	require.Len(t, one.Payments, 1)
	assert.Equal(t, c, one.Payments[0].AccountID)

	_, err = b.payments.ListAllPayments(ctx, alice, dto.ListPaymentsParams{Limit: 10})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestListPayments_BadToken(t *testing.T) {
	b := newBank()
	b.open(t, alice, "1")
	bad := "not a token"

	_, err := b.payments.ListPayments(context.Background(), alice, dto.ListPaymentsParams{Limit: 10, NextToken: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
