package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderCoinGecko = "coingecko"
	ProviderBinance   = "binance"
	ProviderDemo      = "demo"
)

type Config struct {
	Provider string `envconfig:"MARKET_PROVIDER" default:"coingecko"`

	CoinGeckoBaseURL        string        `envconfig:"COINGECKO_BASE_URL" default:"https://api.coingecko.com/api/v3"`
	CoinGeckoAPIKey         string        `envconfig:"COINGECKO_API_KEY"`
	CoinGeckoVsCurrency     string        `envconfig:"COINGECKO_VS_CURRENCY" default:"usd"`
	CoinGeckoRatePerSec     float64       `envconfig:"COINGECKO_RATE_PER_SEC" default:"0.5"`
	CoinGeckoRateBurst      int           `envconfig:"COINGECKO_RATE_BURST" default:"2"`
	CoinGeckoTimeout        time.Duration `envconfig:"COINGECKO_TIMEOUT" default:"15s"`
	CoinGeckoHTTPRetryCount int           `envconfig:"COINGECKO_HTTP_RETRY_COUNT" default:"0"`

	BinanceEndpoint string `envconfig:"BINANCE_ENDPOINT" default:"https://api.binance.com"`
	BinanceQuote    string `envconfig:"BINANCE_QUOTE" default:"USDT"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
