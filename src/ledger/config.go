package ledger

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	SessionID           string          `envconfig:"LEDGER_SESSION_ID" default:"default"`
	QuoteAsset          string          `envconfig:"QUOTE_ASSET" default:"USD"`
	InitialQuoteBalance decimal.Decimal `envconfig:"INITIAL_QUOTE_BALANCE" default:"10000"`
	TradingFeeRate      decimal.Decimal `envconfig:"TRADING_FEE_RATE" default:"0.001"`
	DustThreshold       decimal.Decimal `envconfig:"DUST_THRESHOLD" default:"0.0001"`
	WithdrawMin         decimal.Decimal `envconfig:"WITHDRAW_MIN" default:"10"`
	WithdrawMax         decimal.Decimal `envconfig:"WITHDRAW_MAX" default:"10000"`
	WithdrawFeeRate     decimal.Decimal `envconfig:"WITHDRAW_FEE_RATE" default:"0.01"`
	WithdrawFeeMax      decimal.Decimal `envconfig:"WITHDRAW_FEE_MAX" default:"25"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// DefaultConfig matches the env defaults without reading the environment.
func DefaultConfig() Config {
	return Config{
		SessionID:           "default",
		QuoteAsset:          "USD",
		InitialQuoteBalance: decimal.NewFromInt(10000),
		TradingFeeRate:      decimal.RequireFromString("0.001"),
		DustThreshold:       decimal.RequireFromString("0.0001"),
		WithdrawMin:         decimal.NewFromInt(10),
		WithdrawMax:         decimal.NewFromInt(10000),
		WithdrawFeeRate:     decimal.RequireFromString("0.01"),
		WithdrawFeeMax:      decimal.NewFromInt(25),
	}
}
