package executors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// WatchAssets are coin ids (or catalog symbols) refreshed every cycle.
	WatchAssets   []string `envconfig:"WATCH_ASSETS" default:"bitcoin,ethereum,solana"`
	EMAPeriod     int      `envconfig:"EMA_PERIOD" default:"20"`
	HistoryDays   int      `envconfig:"HISTORY_DAYS" default:"30"`
	ForecastSteps int      `envconfig:"FORECAST_STEPS" default:"7"`
	RSIPeriod     int      `envconfig:"RSI_PERIOD" default:"14"`
	SMAWindows    []int    `envconfig:"SMA_WINDOWS" default:"5,10,20"`
	// StatsWindows are the bar counts of the average/max/min change summaries.
	StatsWindows []int `envconfig:"STATS_WINDOWS" default:"7,30"`
	RestoreLedger bool     `envconfig:"RESTORE_LEDGER" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
