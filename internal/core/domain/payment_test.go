package domain_test

import (
	"testing"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"1", true},
		{"0.0001", true},
		{"12.3400", true},
		{"1.500000", true},
		{"0", false},
		{"-3", false},
		{"0.00001", false},
		{"1.23456789", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}
