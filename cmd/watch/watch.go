package watch

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"papertrader/src/executors"
	"papertrader/src/server"

	"github.com/sirupsen/logrus"
)

// Swapped in tests.
var (
	startLoop   = executors.StartLoop
	startServer = server.StartServer
)

type Watcher struct {
	Config *Config
}

// Start runs the refresh loop until SIGINT or SIGTERM. With Serve set the
// HTTP API runs on the same engine.
func (w *Watcher) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()
	return w.Run(ctx)
}

func (w *Watcher) Run(ctx context.Context) error {
	if w.Config == nil {
		w.Config = GetConfig()
	}

	if w.Config.Serve {
		logrus.Info("Starting refresh loop with HTTP API")
		if err := startServer(ctx, server.GetConfig()); err != nil {
			logrus.WithError(err).Error("Server stopped with error")
			return err
		}
		return nil
	}

	logrus.Info("Starting refresh loop")
	if err := startLoop(ctx); err != nil {
		logrus.WithError(err).Error("Failed to run refresh loop")
		return err
	}
	return nil
}
