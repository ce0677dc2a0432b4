package executors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"papertrader/src/connectors"
	"papertrader/src/controller"
	"papertrader/src/indicator"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/notification"
	"papertrader/src/repository"
	"papertrader/src/signal"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

var ErrCycleFailed = errors.New("refresh cycle failed for every asset")

const dailyStep = 24 * time.Hour

// RefreshCycle fetches market data for the watched assets, recomputes EMA,
// forecast and signal, raises cross alerts and revalues open positions.
type RefreshCycle struct {
	cfg        Config
	service    string
	market     *marketdata.Service
	store      *AnalysisStore
	ledger     *ledger.Ledger
	dispatcher *notification.Dispatcher
	catalog    *connectors.Catalog
	exceptions *repository.ExceptionRepository
	now        func() time.Time
	log        *logger.Entry

	mu          sync.Mutex
	lastAlerted map[string]string
}

func NewRefreshCycle(
	cfg Config,
	market *marketdata.Service,
	store *AnalysisStore,
	l *ledger.Ledger,
	dispatcher *notification.Dispatcher,
	catalog *connectors.Catalog,
	exceptions *repository.ExceptionRepository,
) *RefreshCycle {
	if catalog == nil {
		catalog = connectors.DefaultCatalog()
	}
	return &RefreshCycle{
		cfg:         cfg,
		service:     "papertrader",
		market:      market,
		store:       store,
		ledger:      l,
		dispatcher:  dispatcher,
		catalog:     catalog,
		exceptions:  exceptions,
		now:         time.Now,
		log:         logger.WithField("component", "refresh_cycle"),
		lastAlerted: make(map[string]string),
	}
}

// Run refreshes every watched asset. It fails only when no asset could be
// refreshed; single asset failures are captured and skipped.
func (r *RefreshCycle) Run(ctx context.Context) error {
	ids := r.assetIDs()
	if len(ids) == 0 {
		return nil
	}

	quotes := make(map[string]model.MarketCoin, len(ids))
	coins, quoteMeta, err := r.market.Market(ctx, ids)
	if err != nil {
		r.capture(ctx, "Market", "", err)
	}
	for _, c := range coins {
		quotes[c.ID] = c
	}

	prices := make(map[string]decimal.Decimal, len(ids))
	refreshed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a, err := r.refreshAsset(ctx, id, quotes, quoteMeta)
		if err != nil {
			r.capture(ctx, "refreshAsset", id, err)
			continue
		}
		refreshed++
		if a.Price > 0 {
			prices[r.symbol(id)] = decimal.NewFromFloat(a.Price)
		}
	}

	if r.ledger != nil && len(prices) > 0 {
		pnl := r.ledger.RecomputeUnrealized(prices)
		r.log.WithFields(logger.Fields{
			"unrealized_profit": pnl.Profit.String(),
			"unrealized_loss":   pnl.Loss.String(),
		}).Debug("positions revalued")
	}

	if refreshed == 0 {
		return ErrCycleFailed
	}
	return nil
}

func (r *RefreshCycle) refreshAsset(ctx context.Context, id string, quotes map[string]model.MarketCoin, quoteMeta marketdata.Meta) (model.Analysis, error) {
	history, histMeta, err := r.market.History(ctx, id, r.cfg.HistoryDays)
	if err != nil {
		return model.Analysis{}, err
	}

	result := indicator.Analyze(history.Prices, r.cfg.EMAPeriod, r.cfg.ForecastSteps, dailyStep)

	a := model.Analysis{
		Asset:     id,
		Period:    r.cfg.EMAPeriod,
		EMA:       result.EMA,
		Forecast:  result.Forecast,
		Momentum: indicator.Momentum(history.Prices, indicator.MomentumConfig{
			RSIPeriod:    r.cfg.RSIPeriod,
			SMAWindows:   r.cfg.SMAWindows,
			StatsWindows: r.cfg.StatsWindows,
		}),
		Demo:      histMeta.Demo,
		Stale:     histMeta.Stale,
		Source:    string(histMeta.Source),
		UpdatedAt: r.now(),
	}
	if last, ok := history.Last(); ok {
		a.Price = last.Price
	}
	if q, ok := quotes[id]; ok && q.CurrentPrice > 0 {
		a.Price = q.CurrentPrice
		a.Change24h = q.PriceChangePercentage24h
		a.Demo = a.Demo || quoteMeta.Demo
		a.Stale = a.Stale || quoteMeta.Stale
	}

	a.Signal = signal.Classify(a.Price, result.EMA, r.cfg.EMAPeriod)
	if cross, ok := signal.DetectCross(history.Prices, result.EMA, r.cfg.EMAPeriod); ok {
		a.Signal = cross
		r.alert(id, history, a)
	}

	r.store.Put(r.symbol(id), a)
	r.log.WithFields(logger.Fields{
		"asset":  id,
		"price":  a.Price,
		"signal": a.Signal.Type,
		"source": a.Source,
		"demo":   a.Demo,
	}).Info("asset refreshed")
	return a, nil
}

// alert notifies a cross once per asset, signal and bar.
func (r *RefreshCycle) alert(id string, history *model.PriceHistory, a model.Analysis) {
	if r.dispatcher == nil {
		return
	}
	last, _ := history.Last()
	key := fmt.Sprintf("%s:%d", a.Signal.Type, last.Timestamp.Unix())

	r.mu.Lock()
	if r.lastAlerted[id] == key {
		r.mu.Unlock()
		return
	}
	r.lastAlerted[id] = key
	r.mu.Unlock()

	r.dispatcher.Notify(notification.AlertFromSignal(id, a.Signal, a.Demo, r.now()))
}

func (r *RefreshCycle) assetIDs() []string {
	ids := make([]string, 0, len(r.cfg.WatchAssets))
	for _, asset := range r.cfg.WatchAssets {
		if a, ok := r.catalog.Resolve(asset); ok {
			ids = append(ids, a.ID)
			continue
		}
		if asset = strings.ToLower(strings.TrimSpace(asset)); asset != "" {
			ids = append(ids, asset)
		}
	}
	return ids
}

func (r *RefreshCycle) symbol(id string) string {
	if a, ok := r.catalog.Resolve(id); ok {
		return a.Symbol
	}
	return strings.ToUpper(id)
}

func (r *RefreshCycle) capture(ctx context.Context, method, asset string, err error) {
	controller.Capture(ctx, r.exceptions, controller.Fault{
		Service: r.service,
		Module:  "refresh_cycle",
		Method:  method,
		Asset:   asset,
		Level:   "warn",
		Err:     err,
	})
}
