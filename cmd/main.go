package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"papertrader/cmd/analyze"
	"papertrader/cmd/watch"
	"papertrader/src/database"
	"papertrader/src/server"
	"papertrader/src/utils"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	utils.SetupLogger()

	app := cli.NewApp()
	app.Name = "papertrader"
	app.Usage = "Paper trading portfolio and market data engine"
	app.Version = Version

	app.Commands = []cli.Command{
		watchCMD,
		analyzeCMD,
		serveCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	watchCMD = cli.Command{
		Name:   "watch",
		Usage:  "run the auto refresh loop",
		Action: watchAction,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "serve", Usage: "also expose the HTTP API"},
		},
		Description: `Refresh market data, analysis and open position values on an interval`,
	}
	analyzeCMD = cli.Command{
		Name:      "analyze",
		Usage:     "one shot EMA, forecast and signal for an asset",
		Action:    analyzeAction,
		ArgsUsage: "[asset]",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "days", Usage: "history window in days"},
			cli.StringFlag{Name: "interval", Usage: "1h, 4h or 1d"},
			cli.BoolFlag{Name: "store", Usage: "store daily candles in the database"},
		},
		Description: `Import Binance klines for one asset and print its analysis as JSON`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP and websocket API",
		Action:      serveAction,
		Description: `Run the HTTP API with the refresh scheduler`,
	}
)

func watchAction(c *cli.Context) error {
	logrus.Info("Starting watch CMD")

	config := watch.GetConfig()
	if c.Bool("serve") {
		config.Serve = true
	}
	w := &watch.Watcher{Config: config}
	if err := w.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func analyzeAction(c *cli.Context) error {
	logrus.Info("Starting analyze CMD")

	config := analyze.GetConfig()
	if asset := c.Args().First(); asset != "" {
		config.Asset = asset
	}
	if days := c.Int("days"); days > 0 {
		config.Days = days
	}
	if interval := c.String("interval"); interval != "" {
		config.Interval = interval
	}

	a := &analyze.Analyzer{
		Log:    logrus.WithField("cmd", "analyze"),
		Config: config,
		Out:    os.Stdout,
	}
	if c.Bool("store") {
		if err := database.InitMainDB(); err != nil {
			logrus.WithError(err).Error("Failed to connect to database")
			return err
		}
		a.DB = database.MainDB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Start(ctx); err != nil {
		logrus.WithError(err).Error("Starting analyze cmd")
		return err
	}
	return nil
}

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.StartServer(ctx, server.GetConfig())
}
