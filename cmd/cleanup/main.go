// Command cleanup runs the retention sweeps once against the configured
// database and exits. Intended for cron or manual operation; the server
// runs the same sweeps on an interval.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"lxcloud/internal/config"
	"lxcloud/internal/infrastructure/database/postgres"
	"lxcloud/internal/logger"
	"lxcloud/internal/sweeper"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	years := pflag.Int("years", 0, "override retention window in years (0 uses config)")
	offlineDays := pflag.Int("offline-days", 0, "override offline threshold in days (0 uses config)")
	dryRun := pflag.Bool("dry-run", false, "report what would be affected without changing anything")
	skipData := pflag.Bool("skip-data", false, "skip the telemetry retention sweep")
	skipStatus := pflag.Bool("skip-status", false, "skip the offline status sweep")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_HOST and DB_NAME environment variables.")
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	yearsToKeep := cfg.Retention.YearsToKeep
	if *years > 0 {
		yearsToKeep = *years
	}
	offlineAfter := cfg.Retention.OfflineAfter
	if *offlineDays > 0 {
		offlineAfter = time.Duration(*offlineDays) * 24 * time.Hour
	}

	registryRepo := postgres.NewRegistryRepository(db)
	telemetryRepo := postgres.NewTelemetryRepository(db)
	sw := sweeper.New(registryRepo, telemetryRepo, yearsToKeep, offlineAfter)

	ctx := context.Background()
	exitCode := 0

	if !*skipData {
		report, err := sw.SweepTelemetry(ctx, *dryRun)
		if err != nil {
			logger.Error("Telemetry sweep failed", zap.Error(err))
			exitCode = 1
		} else {
			fmt.Printf("Telemetry sweep: cutoff year %d, %d records affected (dry-run: %v)\n",
				report.CutoffYear, report.RecordsAffected, report.DryRun)
		}
	}

	if !*skipStatus {
		affected, err := sw.SweepOfflineScreens(ctx, *dryRun)
		if err != nil {
			logger.Error("Offline sweep failed", zap.Error(err))
			exitCode = 1
		} else {
			fmt.Printf("Offline sweep: %d devices affected (dry-run: %v)\n", affected, *dryRun)
		}
	}

	os.Exit(exitCode)
}
