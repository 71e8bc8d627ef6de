// Package main is the entry point for the angle-studio HTTP server.
// In Go, the `main` package with a `main()` function is what gets executed.
// Go compiles to a single static binary — no runtime needed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/config"
	"github.com/omerdahan/angle-studio/internal/credential"
	"github.com/omerdahan/angle-studio/internal/imageapi"
	"github.com/omerdahan/angle-studio/internal/quota"
	"github.com/omerdahan/angle-studio/internal/server"
	"github.com/omerdahan/angle-studio/internal/service"
	"github.com/omerdahan/angle-studio/internal/storage"
)

func main() {
	// os.Exit ensures the process exits with a non-zero code on failure.
	// We call run() separately so deferred cleanup functions execute properly
	// (deferred functions don't run when os.Exit is called directly).
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present — convenient in development, a no-op in production.
	_ = godotenv.Load()

	configPath := os.Getenv("ANGLE_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging with zap.
	// zap is a high-performance structured logger — it outputs JSON in production
	// and human-readable format in development.
	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync flushes buffered log entries. We intentionally ignore the error here
	// because Sync commonly fails on stdout/stderr (not a real problem).
	defer func() { _ = logger.Sync() }()

	// Initialize storage
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	exports, err := storage.NewFileSystem(cfg.Storage.ExportDir)
	if err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	usageRepo := storage.NewUsageRepository(db)
	credRepo := storage.NewCredentialRepository(db)
	callRepo := storage.NewCallRepository(db)

	startCtx := context.Background()
	ledger := quota.NewLedger(startCtx, usageRepo, cfg.Limits.DailyLimit, logger)
	creds := credential.NewStore(startCtx, cfg.ImageAPI.APIKey, credRepo, logger)

	// Exactly one remote provider is active per process; no fallback chain.
	var client imageapi.Client
	switch cfg.ImageAPI.Provider {
	case "gemini":
		client = imageapi.NewGeminiClient(cfg.ImageAPI.GeminiModel)
	case "openai":
		client = imageapi.NewOpenAIClient(cfg.ImageAPI.OpenAIModel)
	default:
		return fmt.Errorf("unknown image API provider: %s", cfg.ImageAPI.Provider)
	}

	studio := service.NewStudio(service.Deps{
		Client:      client,
		Ledger:      ledger,
		Credentials: creds,
		Calls:       callRepo,
		Processor:   service.NewImageProcessor(),
		Exports:     exports,
		EditorURL:   cfg.ImageAPI.EditorURL,
		Cooldown:    cfg.Limits.Cooldown(),
		CallTimeout: cfg.ImageAPI.CallTimeout(),
		Logger:      logger,
	})

	// runCtx governs background generation runs; cancelled on shutdown so a
	// run waiting out its cooldown stops promptly.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	srv := server.New(cfg, server.Deps{
		Studio:      studio,
		Credentials: creds,
		Ledger:      ledger,
		Calls:       callRepo,
		RunCtx:      runCtx,
	}, logger)

	logger.Info("angle studio configured",
		zap.String("provider", client.ProviderName()),
		zap.String("model", client.ModelName()),
		zap.Int("daily_limit", cfg.Limits.DailyLimit),
	)

	// Graceful shutdown: listen for SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Block until we receive a signal or the server errors out.
	// select is like a switch for channels — it waits until one is ready.
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Stop any in-flight generation run, then give in-flight requests
	// 10 seconds to complete.
	cancelRuns()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
