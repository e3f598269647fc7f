package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backlab/internal/backtest"
	"backlab/internal/config"
	"backlab/internal/gather"
	"backlab/internal/httpapi"
	"backlab/internal/store"
	"backlab/internal/strategy/builtins"
	"backlab/internal/util"
)

func main() {
	cfgPath := ""
	if p := os.Getenv("BACKLAB_CONFIG"); p != "" {
		cfgPath = p
	} else if _, err := os.Stat("config/backlab.yaml"); err == nil {
		cfgPath = "config/backlab.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open run database: %v", err)
	}
	defer runs.Close()

	registry := builtins.DefaultRegistry()

	source := gather.NewAlpacaSource(gather.AlpacaConfig{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		DataURL:   cfg.Alpaca.DataURL,
		BaseURL:   cfg.Alpaca.BaseURL,
		Feed:      cfg.Alpaca.Feed,
	})
	var defaultStart time.Time
	if cfg.Gather.StartDate != "" {
		defaultStart, err = time.Parse("2006-01-02", cfg.Gather.StartDate)
		if err != nil {
			log.Fatalf("invalid gather.start_date %q: %v", cfg.Gather.StartDate, err)
		}
	}
	ingestor := gather.NewIngestor(source, bars, cfg.Gather.RateLimitPerMin, cfg.Gather.MaxRetries, defaultStart)
	engine := backtest.NewEngine(bars, registry)

	api := httpapi.NewServer(bars, runs, registry, ingestor, engine, httpapi.Defaults{
		StartCash: cfg.Backtest.StartCash,
		RunsLimit: cfg.Backtest.RunHistory,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backlab-server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
}
