package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fsanano/shopcart/internal/app"
	"fsanano/shopcart/internal/config"
	"fsanano/shopcart/internal/console"
	"fsanano/shopcart/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Logs go to the file only; stdout belongs to the menus.
	lg, err := logger.New(logger.Options{File: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	err = console.New(os.Stdin, os.Stdout, a.Users, a.Shop, lg).Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stdout)
		lg.Info("console session interrupted")
		return
	}
	if err != nil {
		lg.Error("console session ended with error", zap.Error(err))
	}
}
