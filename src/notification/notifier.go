package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"papertrader/src/model"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

var ErrInvalidAlert = errors.New("invalid alert")

// Alert is the EMA cross payload handed to notifiers.
type Alert struct {
	AssetID    string           `json:"coin_id"`
	SignalType model.SignalType `json:"signal_type"`
	Price      float64          `json:"current_price"`
	EMAValue   float64          `json:"ema_value"`
	Confidence model.Confidence `json:"confidence"`
	Reason     string           `json:"reason,omitempty"`
	Demo       bool             `json:"demo"`
	At         time.Time        `json:"at"`
}

func AlertFromSignal(assetID string, sig model.Signal, demo bool, at time.Time) Alert {
	return Alert{
		AssetID:    assetID,
		SignalType: sig.Type,
		Price:      sig.Price,
		EMAValue:   sig.EMAValue,
		Confidence: sig.Confidence,
		Reason:     sig.Reason,
		Demo:       demo,
		At:         at,
	}
}

func (a Alert) Validate() error {
	if a.AssetID == "" || a.Price <= 0 || a.EMAValue <= 0 {
		return fmt.Errorf("%w: coin id, price and ema value are required", ErrInvalidAlert)
	}
	if a.SignalType != model.SignalBuy && a.SignalType != model.SignalSell {
		return fmt.Errorf("%w: signal type %q", ErrInvalidAlert, a.SignalType)
	}
	return nil
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	log *logger.Entry
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithField("component", "notification")}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.log.WithFields(logger.Fields{
		"asset":      alert.AssetID,
		"signal":     alert.SignalType,
		"price":      alert.Price,
		"ema":        alert.EMAValue,
		"confidence": alert.Confidence,
		"demo":       alert.Demo,
	}).Info(alert.Reason)
	return nil
}

// WebhookNotifier POSTs alerts as JSON.
type WebhookNotifier struct {
	url  string
	http *resty.Client
}

func NewWebhookNotifier(url string, timeout time.Duration, retries int) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && (r.StatusCode() >= 500 || r.StatusCode() == 429)
		}).
		SetHeader("Content-Type", "application/json")
	return &WebhookNotifier{url: url, http: client}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(alert).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook post: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}
