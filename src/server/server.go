package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"papertrader/src/executors"
	"papertrader/src/handler"
	"papertrader/src/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
)

// NewRouter mounts the API, metrics and websocket routes on e.
func NewRouter(e *executors.Engine, hub *Hub) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})
	r.Handle("/metrics", metrics.Handler(e.Registry))
	r.Get("/ws", hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", handler.PortfolioHandler(e.Controller))
		r.Post("/portfolio/reset", handler.ResetHandler(e.Controller))
		r.Get("/transactions", handler.TransactionsHandler(e.Controller))
		r.Post("/trades/buy", handler.BuyHandler(e.Controller))
		r.Post("/trades/sell", handler.SellHandler(e.Controller))
		r.Post("/positions/{id}/close", handler.ClosePositionHandler(e.Controller))
		r.Post("/withdrawals", handler.WithdrawHandler(e.Controller))
		r.Post("/deposits", handler.DepositHandler(e.Controller))

		r.Get("/analysis", handler.AnalysisListHandler(e.Store))
		r.Get("/analysis/{asset}", handler.AnalysisHandler(e.Store))
		r.Get("/market", handler.MarketHandler(e.Market))
		r.Get("/market/movers", handler.MoversHandler(e.Market, e.Catalog.IDs()))
		r.Get("/market/{id}/history", handler.HistoryHandler(e.Market))
		r.Get("/market/{id}/value", handler.CoinValueHandler(e.Market))

		r.Get("/scheduler", handler.SchedulerStateHandler(e.Scheduler))
		r.Post("/scheduler/{action}", handler.SchedulerActionHandler(e.Scheduler))
	})
	return r
}

// StartServer wires the engine, runs the refresh scheduler next to the HTTP
// server and shuts both down gracefully once ctx is done.
func StartServer(ctx context.Context, config *Config) error {
	e, err := executors.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.WithError(err).Warn("engine close")
		}
	}()

	hub := NewHub(config.WSBuffer)
	detach := hub.Attach(e.Ledger, e.Store)
	defer detach()

	// Graceful server
	addr := ":" + config.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(e, hub),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.RunScheduler(runCtx); err != nil {
			logger.WithError(err).Error("scheduler stopped")
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		logger.WithError(err).Error("Server crashed")
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.WithError(shutdownErr).Error("Shutdown error")
	}
	hub.CloseAll()
	cancel()
	wg.Wait()
	return err
}
