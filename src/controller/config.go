package controller

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// OrderSizePercent is the share of the quote balance a buy spends, and the
	// share of the holding a sell disposes, when no explicit amount is given.
	OrderSizePercent int    `envconfig:"ORDER_SIZE_PERCENT" default:"25"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"papertrader"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
