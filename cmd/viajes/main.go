package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"viajes/internal/amqp"
	"viajes/internal/config"
	"viajes/internal/expenses"
	apphttp "viajes/internal/http"
	"viajes/internal/log"
	"viajes/internal/oplog"
	"viajes/internal/reports"
	"viajes/internal/routes"
	"viajes/internal/services"
	"viajes/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting viajes")

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

	// AMQP is optional: without a broker trips are aggregated in-process.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in direct mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - trips will flow through the feed")
		}
	} else {
		logger.Info("AMQP disabled - trips aggregated in-process")
	}

	aggregator := routes.NewAggregator(repo)
	ledger := expenses.NewLedger(repo)
	generator := reports.NewGenerator(repo)
	opl := oplog.NewService(repo)
	tripService := services.NewTripService(aggregator, amqpClient)

	srv := apphttp.NewServer(cfg.Port, tripService, ledger, generator, opl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
