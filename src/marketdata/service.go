package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"papertrader/src/connectors"
	"papertrader/src/fetcher"
	"papertrader/src/model"
)

// Meta tells the caller where a payload came from.
type Meta struct {
	Source fetcher.Source `json:"source"`
	Stale  bool           `json:"stale"`
	Demo   bool           `json:"demo"`
}

func metaOf[T any](r fetcher.Result[T]) Meta {
	return Meta{Source: r.Source, Stale: r.Stale, Demo: r.Demo}
}

// Service reads market snapshots and price history through the fetch
// coordinator, with the demo provider as the last resort.
type Service struct {
	cfg         Config
	provider    connectors.MarketProvider
	demo        *connectors.DemoProvider
	coordinator *fetcher.Coordinator
}

func NewService(cfg Config, provider connectors.MarketProvider, demo *connectors.DemoProvider, coordinator *fetcher.Coordinator) *Service {
	if demo == nil {
		demo = connectors.NewDemoProvider(nil)
	}
	return &Service{cfg: cfg, provider: provider, demo: demo, coordinator: coordinator}
}

func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Market returns one snapshot per id. Ids are deduplicated and sorted so the
// cache key does not depend on the order the caller used.
func (s *Service) Market(ctx context.Context, ids []string) ([]model.MarketCoin, Meta, error) {
	ids = s.normalizeIDs(ids)
	if len(ids) == 0 {
		return []model.MarketCoin{}, Meta{Source: fetcher.SourceCache}, nil
	}

	req := fetcher.Request[[]model.MarketCoin]{
		Key: MarketKey(ids),
		TTL: s.cfg.MarketTTL,
		Fetch: func(ctx context.Context) ([]model.MarketCoin, error) {
			return s.provider.GetMarket(ctx, ids)
		},
	}
	if s.anyKnown(ids) {
		req.Demo = func() []model.MarketCoin {
			coins, _ := s.demo.GetMarket(context.Background(), ids)
			return coins
		}
	}

	res, err := fetcher.Do(ctx, s.coordinator, req)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("market %s: %w", strings.Join(ids, ","), err)
	}
	return res.Value, metaOf(res), nil
}

// Coin is Market for a single id or catalog symbol.
func (s *Service) Coin(ctx context.Context, id string) (model.MarketCoin, Meta, error) {
	want := s.canonical(id)
	coins, meta, err := s.Market(ctx, []string{want})
	if err != nil {
		return model.MarketCoin{}, meta, err
	}
	for _, c := range coins {
		if c.ID == want {
			return c, meta, nil
		}
	}
	return model.MarketCoin{}, meta, fmt.Errorf("market %s: %w", want, connectors.ErrUnknownCoin)
}

// Movers ranks the snapshots of ids by 24h change. Each side holds at most
// limit coins; gainers only rose and losers only fell.
func (s *Service) Movers(ctx context.Context, ids []string, limit int) (Movers, Meta, error) {
	coins, meta, err := s.Market(ctx, ids)
	if err != nil {
		return Movers{}, meta, err
	}
	return RankMovers(coins, limit), meta, nil
}

// History returns days+1 daily closes for id.
func (s *Service) History(ctx context.Context, id string, days int) (*model.PriceHistory, Meta, error) {
	id = s.canonical(id)
	if days < 1 {
		days = 1
	}

	req := fetcher.Request[*model.PriceHistory]{
		Key: HistoryKey(id, days),
		TTL: s.cfg.HistoryTTL,
		Fetch: func(ctx context.Context) (*model.PriceHistory, error) {
			return s.provider.GetHistory(ctx, id, days)
		},
	}
	if _, ok := s.demo.Resolve(id); ok {
		req.Demo = func() *model.PriceHistory {
			h, _ := s.demo.History(id, days)
			return h
		}
	}

	res, err := fetcher.Do(ctx, s.coordinator, req)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("history %s: %w", id, err)
	}
	return res.Value, metaOf(res), nil
}

func MarketKey(ids []string) string {
	return "market:" + strings.Join(ids, ",")
}

func HistoryKey(id string, days int) string {
	return fmt.Sprintf("history:%s:%d", id, days)
}

// canonical maps a catalog symbol such as "BTC" to its coin id; other ids
// are only trimmed and lower-cased.
func (s *Service) canonical(id string) string {
	if a, ok := s.demo.Resolve(id); ok {
		return a.ID
	}
	return strings.ToLower(strings.TrimSpace(id))
}

func (s *Service) anyKnown(ids []string) bool {
	for _, id := range ids {
		if _, ok := s.demo.Resolve(id); ok {
			return true
		}
	}
	return false
}

func (s *Service) normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = s.canonical(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
