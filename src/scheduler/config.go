package scheduler

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Interval time.Duration `envconfig:"REFRESH_INTERVAL" default:"60s"`
	// AutoStart moves the scheduler to RUNNING as soon as Run is called.
	AutoStart bool `envconfig:"REFRESH_AUTO_START" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
