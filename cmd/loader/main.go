package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/config"
	"github.com/crimelens/crime-insights-service/internal/loader"
	"github.com/crimelens/crime-insights-service/internal/logger"
	"github.com/crimelens/crime-insights-service/internal/metrics"
	"github.com/crimelens/crime-insights-service/internal/repository/clickhouse"
)

var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "Bulk loader for police.uk street-level crime data",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	var (
		path       string
		initSchema bool
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Load every <path>/*/*.csv export into ClickHouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), path, initSchema)
		},
	}
	runCmd.Flags().StringVar(&path, "path", "", "Directory holding one sub-directory per month of CSV exports")
	runCmd.Flags().BoolVar(&initSchema, "init-schema", false, "Create the warehouse tables before loading")
	_ = runCmd.MarkFlagRequired("path")

	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, path string, initSchema bool) error {
	cfg, err := config.LoadLoader()
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, cfg.Service.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting crime data loader",
		zap.String("environment", cfg.Service.Environment),
		zap.String("path", path))

	// Initialize ClickHouse client
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, false, log)
	if err != nil {
		return fmt.Errorf("failed to create ClickHouse client: %w", err)
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	repo, err := clickhouse.NewRepository(chClient, log)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}

	if initSchema {
		if err := repo.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		log.Info("Database schema initialized")
	}

	l := loader.NewLoader(repo, cfg.Batch, metrics.NewRecorder(nil), log)

	summary, err := l.Run(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("loaded %d rows from %d files (%d malformed rows skipped)\n",
		summary.Inserted, summary.Files, summary.Malformed)
	return nil
}
