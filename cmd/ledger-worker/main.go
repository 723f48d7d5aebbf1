package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bollette/internal/amqp"
	"bollette/internal/backend"
	"bollette/internal/config"
	applog "bollette/internal/log"
	"bollette/internal/storage"
	"bollette/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger)
	applog.SetDefault(logger)

	logger.Info("Starting ledger-worker")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger, err := backend.NewLedger(ctx, backend.Type(cfg.LedgerBackend), logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ledgerWorker := worker.NewLedgerWorker(repo, ledger)

	go func() {
		if err := amqpClient.ConsumeMessages(ctx, ledgerWorker.HandleSyncMessage, ledgerWorker.HandleDeleteMessage); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give the consumer time to finish the in-flight message.
	select {
	case <-time.After(5 * time.Second):
	case <-sigChan:
	}
	logger.Info("Ledger-worker shutdown complete")
}
