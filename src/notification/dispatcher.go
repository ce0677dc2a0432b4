package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"papertrader/src/metrics"
	"papertrader/src/model"

	logger "github.com/sirupsen/logrus"
)

// Dispatcher fans an alert out to every notifier in the background. Delivery
// failures are logged and counted, never returned.
type Dispatcher struct {
	cfg       Config
	notifiers []Notifier
	metrics   *metrics.Metrics
	log       *logger.Entry
	wg        sync.WaitGroup
}

func NewDispatcher(cfg Config, mt *metrics.Metrics, notifiers ...Notifier) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:       cfg,
		notifiers: notifiers,
		metrics:   mt,
		log:       logger.WithField("component", "notification"),
	}
}

// NewFromConfig builds the log notifier plus a webhook one when a URL is set.
func NewFromConfig(cfg Config, mt *metrics.Metrics) *Dispatcher {
	notifiers := []Notifier{NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout, cfg.RetryCount))
	}
	return NewDispatcher(cfg, mt, notifiers...)
}

// Notify returns immediately. It reports false when the alert was dropped
// by validation or filtering.
func (d *Dispatcher) Notify(alert Alert) bool {
	if !d.accepts(alert) {
		return false
	}
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
			defer cancel()

			err := n.Notify(ctx, alert)
			d.metrics.Notification(n.Name(), err)
			if err != nil {
				d.log.WithError(err).WithFields(logger.Fields{
					"notifier": n.Name(),
					"asset":    alert.AssetID,
				}).Warn("alert delivery failed")
			}
		}(n)
	}
	return true
}

// Wait blocks until every pending delivery is done.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) accepts(alert Alert) bool {
	if !d.cfg.Enabled {
		return false
	}
	if err := alert.Validate(); err != nil {
		d.log.WithError(err).Warn("alert dropped")
		return false
	}
	switch strings.ToLower(d.cfg.SignalFilter) {
	case "buy":
		return alert.SignalType == model.SignalBuy
	case "sell":
		return alert.SignalType == model.SignalSell
	default:
		return true
	}
}
