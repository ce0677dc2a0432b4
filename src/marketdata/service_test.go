package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"papertrader/src/cache"
	"papertrader/src/connectors"
	"papertrader/src/fetcher"
	"papertrader/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	marketCalls  int32
	historyCalls int32
	fail         error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) GetMarket(_ context.Context, ids []string) ([]model.MarketCoin, error) {
	atomic.AddInt32(&p.marketCalls, 1)
	if p.fail != nil {
		return nil, p.fail
	}
	out := make([]model.MarketCoin, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.MarketCoin{ID: id, CurrentPrice: float64(100 * (i + 1))})
	}
	return out, nil
}

func (p *stubProvider) GetHistory(_ context.Context, id string, days int) (*model.PriceHistory, error) {
	atomic.AddInt32(&p.historyCalls, 1)
	if p.fail != nil {
		return nil, p.fail
	}
	h := &model.PriceHistory{ID: id}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i <= days; i++ {
		h.Prices = append(h.Prices, model.PricePoint{Timestamp: start.AddDate(0, 0, i), Price: float64(i + 1)})
	}
	return h, nil
}

func newTestService(p connectors.MarketProvider) *Service {
	noSleep := func(context.Context, time.Duration) error { return nil }
	coord := fetcher.New(fetcher.DefaultConfig(), cache.NewMemory(), fetcher.WithSleep(noSleep))
	return NewService(Config{MarketTTL: time.Minute, HistoryTTL: 5 * time.Minute}, p, nil, coord)
}

func TestMarket_CachedUnderNormalizedKey(t *testing.T) {
	p := &stubProvider{}
	s := newTestService(p)

	coins, meta, err := s.Market(context.Background(), []string{"Ethereum", "bitcoin", "ethereum"})
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, fetcher.SourceLive, meta.Source)

	_, meta, err = s.Market(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, fetcher.SourceCache, meta.Source)
	assert.Equal(t, int32(1), p.marketCalls)
}

func TestHistory_DemoFallback(t *testing.T) {
	p := &stubProvider{fail: errors.New("network down")}
	s := newTestService(p)

	h, meta, err := s.History(context.Background(), "bitcoin", 30)
	require.NoError(t, err)
	assert.True(t, meta.Demo)
	assert.Equal(t, fetcher.SourceDemo, meta.Source)
	assert.Len(t, h.Prices, 31)
	assert.Equal(t, int32(3), p.historyCalls)
}

func TestCoin(t *testing.T) {
	s := newTestService(&stubProvider{})

	c, _, err := s.Coin(context.Background(), " BITCOIN ")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", c.ID)
	assert.Equal(t, 100.0, c.CurrentPrice)
}

func TestHistory_UnknownCoinIsNotFaked(t *testing.T) {
	p := &stubProvider{fail: fmt.Errorf("coingecko: %w", connectors.ErrUnknownCoin)}
	s := newTestService(p)

	h, meta, err := s.History(context.Background(), "not-a-coin", 7)
	require.ErrorIs(t, err, connectors.ErrUnknownCoin)
	assert.Nil(t, h)
	assert.False(t, meta.Demo)
	assert.Equal(t, int32(1), p.historyCalls)
}

func TestHistory_UncataloguedIDHasNoDemoFallback(t *testing.T) {
	s := newTestService(&stubProvider{fail: errors.New("network down")})

	_, _, err := s.History(context.Background(), "not-a-coin", 7)
	assert.ErrorIs(t, err, fetcher.ErrDataUnavailable)

	_, _, err = s.Market(context.Background(), []string{"not-a-coin"})
	assert.ErrorIs(t, err, fetcher.ErrDataUnavailable)
}

func TestCoin_SymbolOnDemoPath(t *testing.T) {
	s := newTestService(&stubProvider{fail: errors.New("network down")})

	c, meta, err := s.Coin(context.Background(), "btc")
	require.NoError(t, err)
	assert.True(t, meta.Demo)
	assert.Equal(t, "bitcoin", c.ID)
	assert.Equal(t, "BTC", c.Symbol)
}

func TestCoin_UnknownCoin(t *testing.T) {
	s := newTestService(&emptyMarketProvider{stubProvider: &stubProvider{}})

	_, _, err := s.Coin(context.Background(), "not-a-coin")
	assert.ErrorIs(t, err, connectors.ErrUnknownCoin)
}

// emptyMarketProvider lists no coin, like CoinGecko for ids it does not know.
type emptyMarketProvider struct {
	*stubProvider
}

func (p *emptyMarketProvider) GetMarket(context.Context, []string) ([]model.MarketCoin, error) {
	return []model.MarketCoin{}, nil
}

func TestMovers(t *testing.T) {
	s := newTestService(&changeProvider{changes: map[string]float64{
		"bitcoin": 2.5, "ethereum": -4, "solana": 7, "cardano": -1, "ripple": 0,
	}})

	m, meta, err := s.Movers(context.Background(), []string{"bitcoin", "ethereum", "solana", "cardano", "ripple"}, 2)
	require.NoError(t, err)
	assert.Equal(t, fetcher.SourceLive, meta.Source)
	assert.Equal(t, []string{"solana", "bitcoin"}, coinIDs(m.Gainers))
	assert.Equal(t, []string{"ethereum", "cardano"}, coinIDs(m.Losers))
}

type changeProvider struct {
	stubProvider
	changes map[string]float64
}

func (p *changeProvider) GetMarket(_ context.Context, ids []string) ([]model.MarketCoin, error) {
	out := make([]model.MarketCoin, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.MarketCoin{ID: id, CurrentPrice: 1, PriceChangePercentage24h: p.changes[id]})
	}
	return out, nil
}

func coinIDs(coins []model.MarketCoin) []string {
	ids := make([]string, 0, len(coins))
	for _, c := range coins {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestRankMovers(t *testing.T) {
	coins := []model.MarketCoin{
		{ID: "a", PriceChangePercentage24h: 1},
		{ID: "b", PriceChangePercentage24h: 1},
		{ID: "c", PriceChangePercentage24h: -3},
	}

	m := RankMovers(coins, 0)
	assert.Equal(t, []string{"a", "b"}, coinIDs(m.Gainers))
	assert.Equal(t, []string{"c"}, coinIDs(m.Losers))

	m = RankMovers(nil, 5)
	assert.Empty(t, m.Gainers)
	assert.Empty(t, m.Losers)
	assert.Equal(t, "a", coins[0].ID)
}

func TestHistory_Live(t *testing.T) {
	p := &stubProvider{}
	s := newTestService(p)

	h, meta, err := s.History(context.Background(), "ethereum", 0)
	require.NoError(t, err)
	assert.False(t, meta.Demo)
	assert.Len(t, h.Prices, 2)

	_, meta, err = s.History(context.Background(), "ethereum", 1)
	require.NoError(t, err)
	assert.Equal(t, fetcher.SourceCache, meta.Source)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "market:bitcoin,ethereum", MarketKey([]string{"bitcoin", "ethereum"}))
	assert.Equal(t, "history:bitcoin:30", HistoryKey("bitcoin", 30))
}
