package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "papertrader"

// Metrics holds the Prometheus collectors shared by the engine components.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	CacheLookups   *prometheus.CounterVec // labels: tier, result
	FetchAttempts  *prometheus.CounterVec // labels: result
	FetchResults   *prometheus.CounterVec // labels: source
	FetchDuration  prometheus.Histogram
	RefreshCycles  *prometheus.CounterVec // labels: result
	LedgerCommands *prometheus.CounterVec // labels: command, result
	Notifications  *prometheus.CounterVec // labels: notifier, result
	QuoteBalance   prometheus.Gauge
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		FetchAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Outbound fetch attempts by result.",
		}, []string{"result"}),
		FetchResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_results_total",
			Help:      "Coordinator results by data source.",
		}, []string{"source"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of coordinated fetches, fallbacks included.",
			Buckets:   prometheus.DefBuckets,
		}),
		RefreshCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by result (ok, failed, skipped).",
		}, []string{"result"}),
		LedgerCommands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_commands_total",
			Help:      "Ledger commands by name and result.",
		}, []string{"command", "result"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by notifier and result.",
		}, []string{"notifier", "result"}),
		QuoteBalance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quote_balance",
			Help:      "Current quote asset balance of the ledger.",
		}),
	}
}

func (m *Metrics) CacheLookup(tier, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) FetchAttempt(result string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) FetchResult(source string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchResults.WithLabelValues(source).Inc()
	m.FetchDuration.Observe(seconds)
}

func (m *Metrics) RefreshCycle(result string) {
	if m == nil {
		return
	}
	m.RefreshCycles.WithLabelValues(result).Inc()
}

func (m *Metrics) LedgerCommand(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.LedgerCommands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) Notification(notifier string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(notifier, result).Inc()
}

func (m *Metrics) SetQuoteBalance(v float64) {
	if m == nil {
		return
	}
	m.QuoteBalance.Set(v)
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
