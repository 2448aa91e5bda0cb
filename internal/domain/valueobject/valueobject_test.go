package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSettlementPrice(t *testing.T) {
	tests := []struct {
		price, pct, want string
	}{
		{"500", "15", "575"},
		{"1000", "10", "1100"},
		{"610.5", "15", "702.075"},
		{"0.1", "10", "0.11"},
		{"99.99", "12.5", "112.4888"},
		{"1", "0.01", "1.0001"},
	}

	for _, tt := range tests {
		t.Run(tt.price+"@"+tt.pct, func(t *testing.T) {
			got := SettlementPrice(d(tt.price), d(tt.pct))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestNewPrice(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"720.123456", "720.1235", true},
		{"0.00005", "0.0001", true},
		{"9999999999.9999", "9999999999.9999", true},
		{"0", "", false},
		{"-1", "", false},
		{"-0.0001", "", false},
		{"0.00001", "", false},
		{"0.00004999", "", false},
		{"10000000000", "", false},
		{"9999999999.99995", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := NewPrice(d(tt.in))
			if !tt.valid {
				assert.True(t, apperror.IsValidation(err), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, p.Equal(d(tt.want)), "got %s want %s", p, tt.want)
		})
	}
}

func TestNewCommissionPercent(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"15", true},
		{"0.0001", true},
		{"10.1235", true},
		{"10.12350", true},
		{"999.9999", true},
		{"0", false},
		{"-5", false},
		{"10.12345", false},
		{"0.00001", false},
		{"1000", false},
		{"1500.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			pct, err := NewCommissionPercent(d(tt.in))
			if !tt.valid {
				assert.True(t, apperror.IsValidation(err), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, pct.Equal(d(tt.in)))
		})
	}
}

func TestNewSettlementPrice(t *testing.T) {
	got, err := NewSettlementPrice(d("500"), d("15"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("575")))

	// 9e9 * 1.15 не помещается в NUMERIC(14,4)
	_, err = NewSettlementPrice(d("9000000000"), d("15"))
	assert.True(t, apperror.IsValidation(err))

	_, err = NewSettlementPrice(d("9999999999.9999"), d("0.0001"))
	assert.True(t, apperror.IsValidation(err))
}

func TestQuotationCategory(t *testing.T) {
	for _, c := range []string{"storage", "moving_service", "privacy_move"} {
		_, err := NewQuotationCategory(c)
		assert.NoError(t, err, c)
	}

	_, err := NewQuotationCategory("local_move")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to DisputeStatus
		ok       bool
	}{
		{DisputeStatusPending, DisputeStatusUnderReview, true},
		{DisputeStatusPending, DisputeStatusResolved, true},
		{DisputeStatusUnderReview, DisputeStatusResolved, true},
		{DisputeStatusPending, DisputeStatusPending, false},
		{DisputeStatusResolved, DisputeStatusUnderReview, false},
		{DisputeStatusUnderReview, DisputeStatusPending, false},
		{DisputeStatusPending, DisputeStatus("closed"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	_, err := NewDisputeStatus("archived")
	assert.True(t, apperror.IsValidation(err))
}
