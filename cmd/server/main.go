package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"workflow-assist/backend/internal/config"
	"workflow-assist/backend/internal/logging"
	"workflow-assist/backend/internal/repository"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "workflow-assist",
	Short: "Workflow assist backend",
	Long: `workflow-assist suggests how an AI assistant can help with a described
workflow and emails instructions built from those suggestions.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger every command shares.
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if err := repository.Migrate(ctx, dbPool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("Schema applied")
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection", "host", cfg.DB.Host, "database", cfg.DB.Name)

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DB.Timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
