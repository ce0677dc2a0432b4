package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("memory", "hit")
		m.FetchAttempt("ok")
		m.FetchResult("live", 0.1)
		m.RefreshCycle("ok")
		m.LedgerCommand("buy", nil)
		m.Notification("log", nil)
		m.SetQuoteBalance(1)
	})
}

func TestCounters(t *testing.T) {
	m := New(nil)

	m.CacheLookup("memory", "hit")
	m.CacheLookup("memory", "hit")
	m.CacheLookup("memory", "miss")
	m.LedgerCommand("sell", errors.New("insufficient balance"))
	m.LedgerCommand("sell", nil)
	m.SetQuoteBalance(9500)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerCommands.WithLabelValues("sell", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerCommands.WithLabelValues("sell", "ok")))
	assert.Equal(t, 9500.0, testutil.ToFloat64(m.QuoteBalance))
}

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RefreshCycle("skipped")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `papertrader_refresh_cycles_total{result="skipped"} 1`))
}
