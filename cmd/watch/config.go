package watch

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Serve also exposes the HTTP API while watching.
	Serve bool `envconfig:"WATCH_SERVE" default:"false"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
