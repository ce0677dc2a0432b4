package risk

import (
	"errors"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// amountPlaces is the precision trade amounts are truncated to.
const amountPlaces = 8

var ErrInvalidPrice = errors.New("price must be positive")

var hundred = decimal.NewFromInt(100)

// ClampPercent keeps percent in 1..100 and logs every adjustment.
func ClampPercent(percent int) int {
	original := percent
	if percent < 1 {
		percent = 1
	}
	if percent > 100 {
		percent = 100
	}
	if percent != original {
		logger.WithFields(logger.Fields{
			"original_pct": original,
			"adjusted_pct": percent,
		}).Warn("Percent out of range, clamped")
	}
	return percent
}

// PercentOf returns percent% of value with the percent clamped to 1..100.
func PercentOf(value decimal.Decimal, percent int) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(int64(ClampPercent(percent)))).Div(hundred)
}

// SizeFromQuote is the asset amount a buy at price can afford when spending
// percent of quoteBalance, fee included. The result is truncated so the
// ledger never sees a cost above the budget.
func SizeFromQuote(quoteBalance, price decimal.Decimal, percent int, feeRate decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	if !quoteBalance.IsPositive() {
		return decimal.Zero, nil
	}
	budget := PercentOf(quoteBalance, percent)
	unitCost := price.Mul(decimal.NewFromInt(1).Add(feeRate))
	return budget.Div(unitCost).Truncate(amountPlaces), nil
}

// SizeFromHolding is percent of an asset balance, for sells.
func SizeFromHolding(balance decimal.Decimal, percent int) decimal.Decimal {
	if !balance.IsPositive() {
		return decimal.Zero
	}
	return PercentOf(balance, percent).Truncate(amountPlaces)
}

// ConfidenceSizeConfig scales a base size by signal confidence.
type ConfidenceSizeConfig struct {
	HighMultiplier   decimal.Decimal
	MediumMultiplier decimal.Decimal
	LowMultiplier    decimal.Decimal
}

func DefaultConfidenceSizeConfig() ConfidenceSizeConfig {
	return ConfidenceSizeConfig{
		HighMultiplier:   decimal.NewFromInt(1),
		MediumMultiplier: decimal.RequireFromString("0.5"),
		LowMultiplier:    decimal.RequireFromString("0.25"),
	}
}

func SizeByConfidence(base decimal.Decimal, c model.Confidence, cfg ConfidenceSizeConfig) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	var mult decimal.Decimal
	switch c {
	case model.ConfidenceHigh:
		mult = cfg.HighMultiplier
	case model.ConfidenceMedium:
		mult = cfg.MediumMultiplier
	default:
		mult = cfg.LowMultiplier
	}
	return base.Mul(mult).Truncate(amountPlaces)
}
