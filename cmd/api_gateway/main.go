package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pix-settlement-ledger/internal/api_gateway"
	"github.com/pix-settlement-ledger/internal/api_gateway/service"
	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/data/mongo"
	"github.com/pix-settlement-ledger/internal/data/postgres"
	"github.com/pix-settlement-ledger/internal/gateway"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
	"github.com/pix-settlement-ledger/internal/settlement/components"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context. Pending migrations are applied here.
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := components.Repositories{
		Users:       postgres.NewUserRepository(log, postgresDB),
		Merchants:   postgres.NewMerchantRepository(log, postgresDB),
		Deposits:    postgres.NewDepositRepository(log, postgresDB),
		Withdrawals: postgres.NewWithdrawalRepository(log, postgresDB),
		Ledger:      postgres.NewTransactionRepository(log, postgresDB),
		Outbox:      postgres.NewOutboxRepository(log, postgresDB),
		Settings:    postgres.NewSettingsRepository(log, postgresDB),
		Catalog:     postgres.NewCatalogRepository(log, postgresDB),
	}
	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())

	// Initialize provider adapters
	gateways, err := gateway.NewRegistry(log, &cfg.Gateways)
	if err != nil {
		log.Error("Failed to initialize payment gateways", "error", err)
		os.Exit(1)
	}

	// Initialize services
	settlement, err := components.CreateSettlementServices(postgresDB, repos, gateways, log, cfg)
	if err != nil {
		log.Error("Failed to initialize settlement services", "error", err)
		os.Exit(1)
	}
	statementService := service.NewStatementService(log, repos.Users, repos.Ledger, activityRepo)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, settlement, statementService, repos.Users)
	log.Info("REST server initialized",
		"deposit_gateway", cfg.Gateways.DepositGateway,
		"withdrawal_gateway", cfg.Gateways.WithdrawalGateway,
	)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pools go away
	if err = server.Stop(shutdownCtx, cfg.Server.ShutdownTimeout); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
