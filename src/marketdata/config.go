package marketdata

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MarketTTL  time.Duration `envconfig:"MARKET_TTL" default:"60s"`
	HistoryTTL time.Duration `envconfig:"HISTORY_TTL" default:"300s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
