package connectors

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"papertrader/src/model"
	"papertrader/src/utils"
)

// DemoProvider generates deterministic synthetic data. The same id, day count
// and day always produce the same series, so repeated refreshes are stable.
type DemoProvider struct {
	catalog *Catalog
	now     func() time.Time
}

func NewDemoProvider(catalog *Catalog) *DemoProvider {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &DemoProvider{catalog: catalog, now: time.Now}
}

func (p *DemoProvider) WithClock(now func() time.Time) *DemoProvider {
	p.now = now
	return p
}

func (p *DemoProvider) Name() string { return ProviderDemo }

func (p *DemoProvider) GetMarket(_ context.Context, ids []string) ([]model.MarketCoin, error) {
	out := make([]model.MarketCoin, 0, len(ids))
	for _, id := range ids {
		if coin, ok := p.Market(id); ok {
			out = append(out, coin)
		}
	}
	return out, nil
}

func (p *DemoProvider) GetHistory(_ context.Context, id string, days int) (*model.PriceHistory, error) {
	h, ok := p.History(id, days)
	if !ok {
		return nil, fmt.Errorf("demo history %s: %w", id, ErrUnknownCoin)
	}
	return h, nil
}

// Resolve looks id up in the catalog the demo data is generated from.
func (p *DemoProvider) Resolve(id string) (CatalogAsset, bool) {
	return p.catalog.Resolve(id)
}

// Market is the synthetic snapshot of a catalog asset.
func (p *DemoProvider) Market(id string) (model.MarketCoin, bool) {
	asset, ok := p.catalog.Resolve(id)
	if !ok {
		return model.MarketCoin{}, false
	}
	h := p.series(asset, 2)
	last := h.Prices[len(h.Prices)-1].Price
	prev := h.Prices[len(h.Prices)-2].Price
	return model.MarketCoin{
		ID:                       asset.ID,
		Symbol:                   asset.Symbol,
		Name:                     asset.Name,
		CurrentPrice:             last,
		PriceChangePercentage24h: (last - prev) / prev * 100,
		MarketCap:                asset.MarketCap * last / asset.BasePrice,
		TotalVolume:              asset.TotalVolume,
	}, true
}

// History returns days+1 daily closes ending today (UTC) for a catalog asset.
func (p *DemoProvider) History(id string, days int) (*model.PriceHistory, bool) {
	asset, ok := p.catalog.Resolve(id)
	if !ok {
		return nil, false
	}
	return p.series(asset, days), true
}

// series is a seeded random walk around the catalog base price.
func (p *DemoProvider) series(asset CatalogAsset, days int) *model.PriceHistory {
	if days < 1 {
		days = 1
	}
	today := utils.ResetTime(p.now(), "day")

	hash := fnv.New64a()
	_, _ = hash.Write([]byte(asset.ID))
	_, _ = hash.Write([]byte(today.Format("2006-01-02")))
	rng := rand.New(rand.NewSource(int64(hash.Sum64())))

	points := make([]model.PricePoint, days+1)
	price := asset.BasePrice
	for i := days; i >= 0; i-- {
		points[i] = model.PricePoint{
			Timestamp: today.AddDate(0, 0, i-days),
			Price:     price,
		}
		// walk backwards so the latest close sits at the base price
		step := 1 + asset.Volatility*(rng.Float64()*2-1)
		price /= step
	}
	return &model.PriceHistory{ID: asset.ID, Prices: points}
}
