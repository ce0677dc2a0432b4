package risk

import (
	"testing"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 1, ClampPercent(0))
	assert.Equal(t, 1, ClampPercent(-20))
	assert.Equal(t, 25, ClampPercent(25))
	assert.Equal(t, 100, ClampPercent(150))
}

func TestPercentOf(t *testing.T) {
	assert.True(t, d("20").Equal(PercentOf(d("200"), 10)))
	assert.True(t, d("1").Equal(PercentOf(d("100"), 0)))
	assert.True(t, d("100").Equal(PercentOf(d("100"), 150)))
}

func TestSizeFromQuote(t *testing.T) {
	tests := []struct {
		name    string
		quote   string
		price   string
		percent int
		fee     string
		want    string
	}{
		{"quarter of balance no fee", "10000", "20000", 25, "0", "0.125"},
		{"fee reduces size", "10000", "100", 100, "0.001", "99.9000999"},
		{"empty balance", "0", "100", 50, "0.001", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SizeFromQuote(d(tt.quote), d(tt.price), tt.percent, d(tt.fee))
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}

	_, err := SizeFromQuote(d("100"), decimal.Zero, 10, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestSizeFromQuote_NeverExceedsBudget(t *testing.T) {
	quote, price, fee := d("1234.56"), d("0.33"), d("0.001")
	for pct := 1; pct <= 100; pct += 7 {
		amount, err := SizeFromQuote(quote, price, pct, fee)
		require.NoError(t, err)
		cost := amount.Mul(price).Mul(d("1").Add(fee))
		assert.True(t, cost.LessThanOrEqual(PercentOf(quote, pct)), "pct %d cost %s", pct, cost)
	}
}

func TestSizeFromHolding(t *testing.T) {
	assert.True(t, d("0.5").Equal(SizeFromHolding(d("1"), 50)))
	assert.True(t, decimal.Zero.Equal(SizeFromHolding(decimal.Zero, 50)))
}

func TestSizeByConfidence(t *testing.T) {
	cfg := DefaultConfidenceSizeConfig()
	base := d("2")
	assert.True(t, d("2").Equal(SizeByConfidence(base, model.ConfidenceHigh, cfg)))
	assert.True(t, d("1").Equal(SizeByConfidence(base, model.ConfidenceMedium, cfg)))
	assert.True(t, d("0.5").Equal(SizeByConfidence(base, model.ConfidenceLow, cfg)))
	assert.True(t, decimal.Zero.Equal(SizeByConfidence(decimal.Zero, model.ConfidenceHigh, cfg)))
}
