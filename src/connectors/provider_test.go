package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	catalog := DefaultCatalog()
	base := Config{CoinGeckoBaseURL: "http://localhost", CoinGeckoTimeout: time.Second, BinanceEndpoint: "http://127.0.0.1:1"}

	for _, name := range []string{ProviderCoinGecko, ProviderBinance, ProviderDemo} {
		cfg := base
		cfg.Provider = name
		p, err := NewProvider(cfg, catalog)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}

	p, err := NewProvider(base, catalog)
	require.NoError(t, err)
	assert.Equal(t, ProviderCoinGecko, p.Name())

	base.Provider = "kraken"
	_, err = NewProvider(base, catalog)
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("wrap: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), true},
		{"decode", fmt.Errorf("wrap: %w", ErrDecode), false},
		{"unknown coin", ErrUnknownCoin, false},
		{"http 500", &HTTPError{Status: 500}, true},
		{"http 429", &HTTPError{Status: 429}, true},
		{"http 408", &HTTPError{Status: 408}, true},
		{"http 400", &HTTPError{Status: 400}, false},
		{"http 401", &HTTPError{Status: 401}, false},
		{"transport", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryableResp(t *testing.T) {
	assert.True(t, isRetryableResp(nil, errors.New("dial tcp: refused")))
	assert.False(t, isRetryableResp(nil, nil))

	resp := &resty.Response{RawResponse: &http.Response{StatusCode: http.StatusServiceUnavailable}}
	assert.True(t, isRetryableResp(resp, nil))
	resp = &resty.Response{RawResponse: &http.Response{StatusCode: http.StatusOK}}
	assert.False(t, isRetryableResp(resp, nil))
}

func TestGetErrorMsg(t *testing.T) {
	assert.Equal(t, "RATE_LIMITED", GetErrorMsg(429))
	assert.Equal(t, "UNKNOWN_STATUS_299", GetErrorMsg(299))
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()

	a, ok := c.Resolve("btc")
	require.True(t, ok)
	assert.Equal(t, "bitcoin", a.ID)

	a, ok = c.Resolve(" Ethereum ")
	require.True(t, ok)
	assert.Equal(t, "ETH", a.Symbol)

	_, ok = c.Resolve("dogecoin")
	assert.False(t, ok)

	ids := c.IDs()
	assert.Len(t, ids, len(c.Assets))
	assert.Equal(t, "bitcoin", ids[0])

	_, err := LoadCatalog([]byte("assets:\n  - id: x\n    base_price: 1\n"))
	assert.Error(t, err)
	_, err = LoadCatalog([]byte("assets:\n  - id: x\n    symbol: X\n    base_price: 0\n"))
	assert.Error(t, err)
	_, err = LoadCatalog([]byte("assets: [:"))
	assert.Error(t, err)
}

func TestDemoProvider_Deterministic(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	p := NewDemoProvider(nil).WithClock(func() time.Time { return now })

	h1, err := p.GetHistory(context.Background(), "bitcoin", 30)
	require.NoError(t, err)
	h2, ok := p.History("BTC", 30)
	require.True(t, ok)

	require.Len(t, h1.Prices, 31)
	assert.Equal(t, h1.Prices, h2.Prices)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), h1.Prices[30].Timestamp)
	assert.Equal(t, time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), h1.Prices[0].Timestamp)

	asset, _ := DefaultCatalog().ByID("bitcoin")
	assert.Equal(t, asset.BasePrice, h1.Prices[30].Price)
	for _, pt := range h1.Prices {
		assert.Greater(t, pt.Price, 0.0)
	}

	// the most recent closes do not depend on the window length
	short, _ := p.History("bitcoin", 2)
	assert.Equal(t, h1.Prices[29:], short.Prices[1:])
}

func TestDemoProvider_Market(t *testing.T) {
	p := NewDemoProvider(nil).WithClock(func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) })

	coins, err := p.GetMarket(context.Background(), []string{"ethereum", "mystery"})
	require.NoError(t, err)
	require.Len(t, coins, 1)

	eth, _ := DefaultCatalog().ByID("ethereum")
	assert.Equal(t, eth.BasePrice, coins[0].CurrentPrice)
	assert.Equal(t, "ETH", coins[0].Symbol)
	assert.NotZero(t, coins[0].PriceChangePercentage24h)

	btc, ok := p.Market("btc")
	require.True(t, ok)
	assert.Equal(t, "bitcoin", btc.ID)
}

func TestDemoProvider_UnknownCoin(t *testing.T) {
	p := NewDemoProvider(nil)

	_, err := p.GetHistory(context.Background(), "mystery", 7)
	assert.ErrorIs(t, err, ErrUnknownCoin)

	_, ok := p.Market("mystery")
	assert.False(t, ok)
	_, ok = p.History("mystery", 7)
	assert.False(t, ok)
}
