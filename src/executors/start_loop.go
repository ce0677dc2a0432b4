package executors

import (
	"context"
	"errors"

	"papertrader/src/cache"
	"papertrader/src/connectors"
	"papertrader/src/controller"
	"papertrader/src/database"
	"papertrader/src/fetcher"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/metrics"
	"papertrader/src/notification"
	"papertrader/src/repository"
	"papertrader/src/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	logger "github.com/sirupsen/logrus"
)

// Swapped in tests.
var (
	initMainDB    = database.InitMainDB
	newRedisStore = cache.NewRedisStore
	newProvider   = connectors.NewProvider
)

// Engine is the wired application: market data, analysis, ledger and the
// refresh scheduler. Both the watch loop and the HTTP server run on it.
type Engine struct {
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Catalog    *connectors.Catalog
	Market     *marketdata.Service
	Store      *AnalysisStore
	Ledger     *ledger.Ledger
	Cycle      *RefreshCycle
	Scheduler  *scheduler.Scheduler
	Dispatcher *notification.Dispatcher
	Controller *controller.TradeController

	schedulerCfg scheduler.Config
	closers      []func() error
}

// NewEngine reads every package config from the environment and wires the
// components. ctx bounds background helpers such as the cache sweeper.
func NewEngine(ctx context.Context) (*Engine, error) {
	config := GetConfig()
	e := &Engine{
		Registry:     prometheus.NewRegistry(),
		Catalog:      connectors.DefaultCatalog(),
		Store:        NewAnalysisStore(),
		schedulerCfg: scheduler.GetConfig(),
	}
	e.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	e.Metrics = metrics.New(e.Registry)

	// persistence is optional
	var (
		exceptions *repository.ExceptionRepository
		snapshots  ledger.Persistence
	)
	if database.GetConfig().EnableDB {
		if err := initMainDB(); err != nil {
			return nil, err
		}
		exceptions = repository.NewExceptionRepository()
		snapshots = repository.NewLedgerSnapshotRepository()
	}

	// cache tiers
	cacheCfg := cache.GetConfig()
	memory := cache.NewMemoryFromConfig(cacheCfg, cache.WithMetrics(e.Metrics))
	memory.StartSweeper(ctx, cacheCfg.SweepInterval)

	coordOpts := []fetcher.Option{fetcher.WithMetrics(e.Metrics)}
	redisStore, err := newRedisStore(ctx, cacheCfg, e.Metrics)
	if err != nil {
		logger.WithError(err).Warn("redis tier unavailable, continuing with the memory cache only")
	}
	if redisStore != nil {
		coordOpts = append(coordOpts, fetcher.WithRemote(redisStore))
		e.closers = append(e.closers, redisStore.Close)
	}
	coordinator := fetcher.New(fetcher.GetConfig(), memory, coordOpts...)

	// market data
	provider, err := newProvider(connectors.GetConfig(), e.Catalog)
	if err != nil {
		return nil, err
	}
	e.Market = marketdata.NewService(marketdata.GetConfig(), provider, connectors.NewDemoProvider(e.Catalog), coordinator)

	// ledger
	ledgerOpts := []ledger.Option{ledger.WithMetrics(e.Metrics)}
	if snapshots != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithPersistence(snapshots))
	}
	e.Ledger = ledger.New(ledger.GetConfig(), ledgerOpts...)
	if snapshots != nil && config.RestoreLedger {
		restored, err := e.Ledger.Restore(ctx)
		if err != nil {
			return nil, err
		}
		logger.WithField("restored", restored).Info("ledger session loaded")
	}

	e.Dispatcher = notification.NewFromConfig(notification.GetConfig(), e.Metrics)
	e.Cycle = NewRefreshCycle(config, e.Market, e.Store, e.Ledger, e.Dispatcher, e.Catalog, exceptions)
	e.Scheduler = scheduler.New(e.schedulerCfg.Interval, e.Cycle.Run, scheduler.WithMetrics(e.Metrics))
	e.Controller = controller.NewTradeController(controller.GetConfig(), e.Ledger, e.Store, e.Catalog, exceptions)

	logger.WithFields(logger.Fields{
		"provider": provider.Name(),
		"assets":   config.WatchAssets,
		"interval": e.schedulerCfg.Interval.String(),
		"redis":    redisStore != nil,
	}).Info("engine wired")
	return e, nil
}

// RunScheduler blocks running refresh cycles until ctx is done or the
// scheduler is disabled.
func (e *Engine) RunScheduler(ctx context.Context) error {
	err := e.Scheduler.Run(ctx, e.schedulerCfg.AutoStart)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close waits for pending notifications and releases external clients.
func (e *Engine) Close() error {
	e.Dispatcher.Wait()
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartLoop runs the refresh loop without the HTTP surface.
func StartLoop(ctx context.Context) error {
	e, err := NewEngine(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.WithError(err).Warn("engine close")
		}
	}()

	logger.Info("refresh loop started")
	err = e.RunScheduler(ctx)
	logger.Info("refresh loop stopped")
	return err
}
