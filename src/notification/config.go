package notification

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Enabled    bool          `envconfig:"NOTIFY_ENABLED" default:"true"`
	WebhookURL string        `envconfig:"NOTIFY_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
	RetryCount int           `envconfig:"NOTIFY_RETRY_COUNT" default:"2"`
	// SignalFilter limits alerts to "all", "buy" or "sell".
	SignalFilter string `envconfig:"NOTIFY_SIGNAL_FILTER" default:"all"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
