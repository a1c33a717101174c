package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"caixa/internal/amqp"
	"caixa/internal/config"
	applog "caixa/internal/log"
	"caixa/internal/services"
	"caixa/internal/sheets"
	gsheet "caixa/internal/sheets/google"
	mem "caixa/internal/sheets/memory"
	"caixa/internal/storage"
	"caixa/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New("caixa-worker", slog.LevelInfo)
	applog.SetDefault(logger)

	logger.Info("Starting caixa-worker")

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

	// Audit book backend: Google Sheets in production, memory for local
	// runs.
	var audit sheets.AuditWriter
	switch cfg.AuditBackend {
	case "sheets":
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		audit = client
		logger.Info("Google Sheets audit book initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		audit = mem.New()
		logger.Info("Memory audit book initialized")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionService := services.NewSessionService(repo, nil)
	exportWorker := worker.NewExportWorker(repo, sessionService, audit, cfg.ExportBatchSize)

	// On startup, drain any exports that were missed while the worker
	// was down.
	logger.Info("Performing startup backfill...")
	if err := exportWorker.StartupBackfill(ctx); err != nil {
		logger.Error("Startup backfill failed", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		handler := func(msg *amqp.SessionExportMessage) error {
			return exportWorker.HandleExportMessage(ctx, msg)
		}
		if err := amqpClient.ConsumeSessionExports(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic backfill for any missed messages
	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic backfill failed", "error", err)
				}
			}
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

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight exports time to finish
	time.Sleep(5 * time.Second)
	logger.Info("Worker shutdown complete")
}
