package analyze

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Asset    string `envconfig:"ANALYZE_ASSET" default:"bitcoin"`
	Quote    string `envconfig:"BINANCE_QUOTE" default:"USDT"`
	Endpoint string `envconfig:"BINANCE_ENDPOINT" default:"https://api.binance.com"`
	Interval string `envconfig:"ANALYZE_INTERVAL" default:"1d"`
	Days     int    `envconfig:"ANALYZE_DAYS" default:"90"`
	Limit    int    `envconfig:"ANALYZE_LIMIT" default:"1000"`
	// AutoMode resumes the import from the newest stored candle.
	AutoMode bool `envconfig:"ANALYZE_AUTO_MODE" default:"false"`
	Period   int  `envconfig:"EMA_PERIOD" default:"20"`
	Steps    int  `envconfig:"FORECAST_STEPS" default:"7"`
	RSI      int  `envconfig:"RSI_PERIOD" default:"14"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
