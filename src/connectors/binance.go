package connectors

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"papertrader/src/model"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	logger "github.com/sirupsen/logrus"
)

// BinanceClient reads daily klines from the Binance spot API. Coin ids are
// mapped to exchange symbols through the catalog.
type BinanceClient struct {
	exchange goex.API
	quote    string
	catalog  *Catalog
	log      *logger.Entry
}

func NewBinanceClient(cfg Config, catalog *Catalog) *BinanceClient {
	return NewBinanceClientWithAPI(newBinanceInstance(cfg.BinanceEndpoint), cfg.BinanceQuote, catalog)
}

func NewBinanceClientWithAPI(api goex.API, quote string, catalog *Catalog) *BinanceClient {
	if quote == "" {
		quote = "USDT"
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &BinanceClient{
		exchange: api,
		quote:    strings.ToUpper(quote),
		catalog:  catalog,
		log:      logger.WithField("component", "binance"),
	}
}

func newBinanceInstance(endpoint string) *binance.Binance {
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	apiConfig := &goex.APIConfig{
		HttpClient: &http.Client{Timeout: 15 * time.Second},
		Endpoint:   strings.TrimRight(endpoint, "/"),
	}
	return binance.NewWithConfig(apiConfig)
}

func (b *BinanceClient) Name() string { return ProviderBinance }

func (b *BinanceClient) GetMarket(ctx context.Context, ids []string) ([]model.MarketCoin, error) {
	out := make([]model.MarketCoin, 0, len(ids))
	for _, id := range ids {
		klines, err := b.klines(ctx, id, 2)
		if err != nil {
			return nil, err
		}
		last := klines[len(klines)-1]
		coin := model.MarketCoin{
			ID:           id,
			Symbol:       b.symbol(id),
			Name:         id,
			CurrentPrice: last.Close,
			TotalVolume:  last.Vol * last.Close,
		}
		if a, ok := b.catalog.Resolve(id); ok {
			coin.Name = a.Name
			coin.MarketCap = a.MarketCap
		}
		if len(klines) > 1 && klines[len(klines)-2].Close > 0 {
			prev := klines[len(klines)-2].Close
			coin.PriceChangePercentage24h = (last.Close - prev) * 100 / prev
		}
		out = append(out, coin)
	}
	return out, nil
}

// GetHistory returns days+1 daily closes, oldest first.
func (b *BinanceClient) GetHistory(ctx context.Context, id string, days int) (*model.PriceHistory, error) {
	if days < 1 {
		days = 1
	}
	klines, err := b.klines(ctx, id, days+1)
	if err != nil {
		return nil, err
	}
	points := make([]model.PricePoint, 0, len(klines))
	for _, k := range klines {
		points = append(points, model.PricePoint{
			Timestamp: time.Unix(k.Timestamp, 0).UTC(),
			Price:     k.Close,
		})
	}
	return &model.PriceHistory{ID: id, Prices: points}, nil
}

func (b *BinanceClient) symbol(id string) string {
	if a, ok := b.catalog.Resolve(id); ok {
		return a.Symbol
	}
	return strings.ToUpper(id)
}

// klines runs the blocking goex call in a goroutine so ctx can abandon it.
func (b *BinanceClient) klines(ctx context.Context, id string, limit int) ([]goex.Kline, error) {
	pair := goex.NewCurrencyPair(goex.Currency{Symbol: b.symbol(id)}, goex.Currency{Symbol: b.quote})

	type result struct {
		klines []goex.Kline
		err    error
	}
	done := make(chan result, 1)
	go func() {
		k, err := b.exchange.GetKlineRecords(pair, goex.KLINE_PERIOD_1DAY, limit)
		done <- result{klines: k, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("binance klines %s: %w", pair, ctx.Err())
	case r := <-done:
		if r.err != nil {
			b.log.WithError(r.err).WithField("pair", pair.String()).Warn("binance klines failed")
			return nil, fmt.Errorf("binance klines %s: %w", pair, r.err)
		}
		if len(r.klines) == 0 {
			return nil, fmt.Errorf("binance klines %s: empty series: %w", pair, ErrDecode)
		}
		return r.klines, nil
	}
}
