package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"papertrader/src/model"
	"papertrader/src/utils"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// -----------------------------
// RESPONSES
// -----------------------------
type cgMarketData struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

type cgMarketChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// -----------------------------
// CLIENT
// -----------------------------
type CoinGeckoClient struct {
	http       *resty.Client
	limiter    *rate.Limiter
	vsCurrency string
	log        *logger.Entry
}

func NewCoinGeckoClient(cfg Config) *CoinGeckoClient {
	if cfg.CoinGeckoRatePerSec <= 0 {
		cfg.CoinGeckoRatePerSec = 0.5
	}
	if cfg.CoinGeckoRateBurst <= 0 {
		cfg.CoinGeckoRateBurst = 1
	}
	if cfg.CoinGeckoVsCurrency == "" {
		cfg.CoinGeckoVsCurrency = "usd"
	}

	httpClient := newRestyClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoTimeout, cfg.CoinGeckoHTTPRetryCount)
	if cfg.CoinGeckoAPIKey != "" {
		httpClient.SetHeader("x-cg-pro-api-key", cfg.CoinGeckoAPIKey)
	}

	return &CoinGeckoClient{
		http:       httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.CoinGeckoRatePerSec), cfg.CoinGeckoRateBurst),
		vsCurrency: strings.ToLower(cfg.CoinGeckoVsCurrency),
		log:        logger.WithField("component", "coingecko"),
	}
}

// NewCoinGeckoClientWithResty is used by tests to point at an httptest server.
func NewCoinGeckoClientWithResty(httpClient *resty.Client, limiter *rate.Limiter) *CoinGeckoClient {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &CoinGeckoClient{
		http:       httpClient,
		limiter:    limiter,
		vsCurrency: "usd",
		log:        logger.WithField("component", "coingecko"),
	}
}

func (c *CoinGeckoClient) Name() string { return ProviderCoinGecko }

// GetMarket calls /coins/markets for ids. The result keeps the order of ids;
// ids the provider does not know are omitted.
func (c *CoinGeckoClient) GetMarket(ctx context.Context, ids []string) ([]model.MarketCoin, error) {
	if len(ids) == 0 {
		return []model.MarketCoin{}, nil
	}

	var rows []cgMarketData
	params := map[string]string{
		"vs_currency": c.vsCurrency,
		"ids":         strings.Join(ids, ","),
	}
	if err := c.get(ctx, "/coins/markets", params, &rows); err != nil {
		return nil, err
	}

	byID := make(map[string]cgMarketData, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]model.MarketCoin, 0, len(rows))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			c.log.WithField("id", id).Warn("coin missing from market response")
			continue
		}
		out = append(out, model.MarketCoin{
			ID:                       r.ID,
			Symbol:                   strings.ToUpper(r.Symbol),
			Name:                     r.Name,
			CurrentPrice:             r.CurrentPrice,
			PriceChangePercentage24h: r.PriceChangePercentage24h,
			MarketCap:                r.MarketCap,
			TotalVolume:              r.TotalVolume,
		})
	}
	return out, nil
}

// GetHistory calls /coins/{id}/market_chart with a daily interval.
func (c *CoinGeckoClient) GetHistory(ctx context.Context, id string, days int) (*model.PriceHistory, error) {
	if days < 1 {
		days = 1
	}

	var chart cgMarketChartResponse
	params := map[string]string{
		"vs_currency": c.vsCurrency,
		"days":        strconv.Itoa(days),
		"interval":    "daily",
	}
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", params, &chart); err != nil {
		return nil, err
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("coingecko history %s: empty price series: %w", id, ErrDecode)
	}

	points := make([]model.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		points = append(points, model.PricePoint{
			Timestamp: utils.FromMillis(int64(p[0])),
			Price:     p[1],
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

	return &model.PriceHistory{ID: id, Prices: points}, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, params map[string]string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("coingecko rate limiter %s: %w", path, err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("coingecko GET %s: %w", path, err)
	}
	if resp.IsError() {
		httpErr := &HTTPError{Provider: ProviderCoinGecko, Status: resp.StatusCode(), Body: truncate(resp.String(), 200)}
		c.log.WithFields(logger.Fields{
			"path":   path,
			"status": resp.StatusCode(),
		}).Warn("coingecko request failed")
		if resp.StatusCode() == 404 {
			return fmt.Errorf("%w: %w", ErrUnknownCoin, httpErr)
		}
		return httpErr
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("coingecko GET %s: %v: %w", path, err, ErrDecode)
	}

	c.log.WithFields(logger.Fields{
		"path":    path,
		"elapsed": resp.Time().String(),
	}).Debug("coingecko request done")
	return nil
}
