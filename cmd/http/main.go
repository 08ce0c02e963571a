package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fsanano/shopcart/internal/app"
	"fsanano/shopcart/internal/config"
	"fsanano/shopcart/internal/handler"
	"fsanano/shopcart/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.SessionSecret == "" {
		log.Fatalf("SESSION_SECRET must be set")
	}

	// 2. Setup logging
	lg, err := logger.New(logger.Options{File: cfg.Log.File, Level: cfg.Log.Level, Stdout: true})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	// 3. Setup users, catalog and sessions
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("Failed to start application", zap.Error(err))
	}
	defer a.Close()

	cookies := handler.NewCookieStore(cfg.SessionSecret, cfg.CartTTL)

	shopHandler := handler.NewShopHandler(a.Users, a.Shop, cookies, lg)
	h := handler.NewHandler(shopHandler, lg)

	// 4. Setup Server
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Run Server with Graceful Shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}

	lg.Info("Server exiting")
}
