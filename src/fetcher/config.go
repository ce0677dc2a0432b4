package fetcher

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Attempts  int           `envconfig:"FETCH_ATTEMPTS" default:"3"`
	BaseDelay time.Duration `envconfig:"FETCH_BASE_DELAY" default:"500ms"`
	MaxDelay  time.Duration `envconfig:"FETCH_MAX_DELAY" default:"8s"`
	Timeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	// StaleTTL bounds how long the last good payload is kept as fallback.
	StaleTTL time.Duration `envconfig:"FETCH_STALE_TTL" default:"24h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

func DefaultConfig() Config {
	return Config{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  8 * time.Second,
		Timeout:   10 * time.Second,
		StaleTTL:  24 * time.Hour,
	}
}
