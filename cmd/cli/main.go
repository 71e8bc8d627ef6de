// Package main provides the CLI tool for angle-studio.
// Uses Cobra for command parsing — Cobra is the standard Go CLI framework
// (used by kubectl, docker, hugo, and many others).
//
// Run with: go run ./cmd/cli generate --image photo.png --angles front,back
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/config"
	"github.com/omerdahan/angle-studio/internal/credential"
	"github.com/omerdahan/angle-studio/internal/imageapi"
	"github.com/omerdahan/angle-studio/internal/model"
	"github.com/omerdahan/angle-studio/internal/quota"
	"github.com/omerdahan/angle-studio/internal/service"
	"github.com/omerdahan/angle-studio/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd creates the root command. Cobra builds a tree of commands:
// angle-cli generate --image photo.png --angles front,three-quarter
// angle-cli usage
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "angle-cli",
		Short: "Product angle studio CLI tools",
	}

	root.AddCommand(generateCmd())
	root.AddCommand(usageCmd())
	return root
}

func generateCmd() *cobra.Command {
	var imagePath string
	var angles string
	var outDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate product renderings from fixed camera angles",
		// RunE returns an error (vs Run which doesn't). Cobra prints the error automatically.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(imagePath, angles, outDir)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Path to the source product photo (required)")
	cmd.Flags().StringVar(&angles, "angles", "", "Comma-separated angle names (required)")
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory the renderings are written to")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("angles")
	return cmd
}

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Print today's generation quota usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsage()
		},
	}
}

// consoleListener prints run progress to stdout as it happens.
type consoleListener struct{}

func (consoleListener) OnStatus(st model.RunStatus) {
	switch st.State {
	case model.RunWaiting:
		fmt.Printf("\r  waiting %ds before the next request ", st.WaitingSeconds)
	case model.RunRunning, model.RunCompleted, model.RunAborted:
		if st.Message != "" {
			fmt.Printf("\r%s\n", st.Message)
		}
	}
}

func runGenerate(imagePath, angles, outDir string) error {
	studio, _, cleanup, err := wireStudio(&consoleListener{})
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	if err := studio.SetUpload(data); err != nil {
		return fmt.Errorf("installing upload: %w", err)
	}

	// Ctrl+C cancels the run between calls (during the cooldown).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\ncancelling run...")
		cancel()
	}()

	selected := strings.Split(angles, ",")
	for i := range selected {
		selected[i] = strings.TrimSpace(selected[i])
	}

	if err := studio.Generate(ctx, selected); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	results := studio.Results()
	for _, r := range results {
		filename, payload, _, err := studio.ResultDownload(r.ID)
		if err != nil {
			return fmt.Errorf("reading result %s: %w", r.ID, err)
		}
		path := filepath.Join(outDir, filename)
		if err := os.WriteFile(path, payload, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("wrote %s\n", path)
	}

	snap := studio.Snapshot()
	if snap.LastError != "" {
		return fmt.Errorf("%s (%d of the selected angles rendered)", snap.LastError, len(results))
	}
	fmt.Printf("quota: %d/%d used today\n", snap.Used, snap.Limit)
	return nil
}

func runUsage() error {
	_, ledger, cleanup, err := wireStudio(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("used today: %d\n", ledger.CurrentCount())
	fmt.Printf("limit:      %d\n", ledger.Limit())
	fmt.Printf("remaining:  %d\n", ledger.Remaining())
	return nil
}

// wireStudio builds the same studio the server runs, minus the HTTP layer.
func wireStudio(listener service.StatusListener) (*service.Studio, *quota.Ledger, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("ANGLE_CONFIG_PATH"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	// Always use development mode for CLI logging.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	exports, err := storage.NewFileSystem(cfg.Storage.ExportDir)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("creating export directory: %w", err)
	}

	ctx := context.Background()
	ledger := quota.NewLedger(ctx, storage.NewUsageRepository(db), cfg.Limits.DailyLimit, logger)
	creds := credential.NewStore(ctx, cfg.ImageAPI.APIKey, storage.NewCredentialRepository(db), logger)

	var client imageapi.Client
	switch cfg.ImageAPI.Provider {
	case "gemini":
		client = imageapi.NewGeminiClient(cfg.ImageAPI.GeminiModel)
	case "openai":
		client = imageapi.NewOpenAIClient(cfg.ImageAPI.OpenAIModel)
	default:
		db.Close()
		return nil, nil, nil, fmt.Errorf("unknown image API provider: %s", cfg.ImageAPI.Provider)
	}

	studio := service.NewStudio(service.Deps{
		Client:      client,
		Ledger:      ledger,
		Credentials: creds,
		Calls:       storage.NewCallRepository(db),
		Processor:   service.NewImageProcessor(),
		Exports:     exports,
		EditorURL:   cfg.ImageAPI.EditorURL,
		Cooldown:    cfg.Limits.Cooldown(),
		CallTimeout: cfg.ImageAPI.CallTimeout(),
		Listener:    listener,
		Logger:      logger,
	})

	cleanup := func() {
		_ = logger.Sync()
		db.Close()
	}
	return studio, ledger, cleanup, nil
}
