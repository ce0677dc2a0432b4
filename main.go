package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"papertrader/src/server"
	"papertrader/src/utils"

	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	utils.SetupLogger()
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.StartServer(ctx, server.GetConfig()); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
}
