package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"viajes/internal/closure"
	"viajes/internal/config"
	"viajes/internal/expenses"
	"viajes/internal/log"
	"viajes/internal/oplog"
	"viajes/internal/routes"
	"viajes/internal/storage"
)

func main() {
	var forzar bool

	rootCmd := &cobra.Command{
		Use:   "cierre-dia",
		Short: "Runs the daily closure job for the trip tracking store",
		Long: `cierre-dia claims today's closure, snapshots the learned routes and the
expense summary, audits the local store backup and records the outcome.
Re-running an already closed day is a safe no-op.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, forzar)
		},
	}
	rootCmd.Flags().BoolVar(&forzar, "forzar", false, "re-run the closure even if today already closed successfully")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, forzar bool) error {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Cron captures stderr; the single status line goes to stdout.
	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentCierre,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
	})
	log.SetDefault(logger)

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

	aggregator := routes.NewAggregator(repo)
	ledger := expenses.NewLedger(repo)
	opl := oplog.NewService(repo)

	closureCfg := closure.Config{
		StorePath:       cfg.SQLiteDBPath,
		ScheduleWindow:  cfg.ClosureScheduleWindow,
		NotifyThreshold: cfg.ClosureNotifyThreshold,
		BackupDir:       cfg.BackupDir,
		TopRoutes:       cfg.TopRoutesLimit,
		Force:           forzar,
	}
	finalizer := closure.NewDayFinalizer(aggregator, ledger, repo, closureCfg)
	runner := closure.NewRunner(closureCfg, repo, opl, finalizer)

	outcome, err := runner.Run(cmd.Context())
	if err != nil {
		logger.Error("Closure run failed", "outcome", outcome.String(), "error", err)
	}
	os.Exit(outcome.ExitCode())
	return nil
}
