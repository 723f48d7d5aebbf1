package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bollette/internal/amqp"
	"bollette/internal/config"
	applog "bollette/internal/log"
	"bollette/internal/services"
	"bollette/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentRollover)
	applog.SetDefault(logger)

	logger.Info("Starting rollover-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP client so rolled-over bills reach the ledger worker.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled, rolled-over bills will not sync to the ledger")
	}

	processor := services.NewRolloverProcessor(repo, events)
	runner := services.NewSweepRunner(repo, processor, cfg.SweepTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Expose sweep metrics.
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("Metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	logger.Info("Rollover sweep configured",
		"interval", cfg.SweepInterval,
		"timeout", cfg.SweepTimeout,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	runSweep := func(now time.Time) {
		report, err := runner.RunDailyRollover(ctx, now)
		if err != nil {
			logger.Error("Sweep failed", "error", err)
			return
		}
		logger.Info("Sweep complete",
			"attempted", report.Attempted,
			"succeeded", report.Succeeded,
			"failed", len(report.Failures))
	}

	// Run an initial sweep on startup so overdue bills are not delayed by a
	// full interval after downtime.
	logger.Info("Running initial rollover sweep...")
	runSweep(time.Now())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runSweep(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics server shutdown failed", "error", err)
	}
	logger.Info("Rollover-worker shutdown complete")
}
