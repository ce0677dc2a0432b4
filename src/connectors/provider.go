package connectors

import (
	"context"
	"errors"
	"fmt"

	"papertrader/src/model"
)

var ErrUnknownCoin = errors.New("unknown coin id")

// MarketProvider supplies market snapshots and daily close history.
type MarketProvider interface {
	Name() string
	GetMarket(ctx context.Context, ids []string) ([]model.MarketCoin, error)
	GetHistory(ctx context.Context, id string, days int) (*model.PriceHistory, error)
}

// NewProvider builds the live provider selected by cfg.Provider.
func NewProvider(cfg Config, catalog *Catalog) (MarketProvider, error) {
	switch cfg.Provider {
	case ProviderCoinGecko, "":
		return NewCoinGeckoClient(cfg), nil
	case ProviderBinance:
		return NewBinanceClient(cfg, catalog), nil
	case ProviderDemo:
		return NewDemoProvider(catalog), nil
	default:
		return nil, fmt.Errorf("market provider %q not supported", cfg.Provider)
	}
}
