package sweeper

import (
	"context"
	"time"

	"lxcloud/internal/domain/registry"
	"lxcloud/internal/domain/telemetry"
	"lxcloud/internal/logger"
	"lxcloud/internal/observability/metrics"

	"go.uber.org/zap"
)

// Report summarizes one sweep pass.
type Report struct {
	CutoffYear      int
	RecordsAffected int64
	DryRun          bool
}

// Sweeper enforces the retention policy: whole-year telemetry partitions
// older than the configured window are dropped, and screens silent past
// the staleness threshold are marked offline.
type Sweeper struct {
	registryRepo  registry.Repository
	telemetryRepo telemetry.Repository
	yearsToKeep   int
	offlineAfter  time.Duration
}

func New(registryRepo registry.Repository, telemetryRepo telemetry.Repository, yearsToKeep int, offlineAfter time.Duration) *Sweeper {
	if yearsToKeep < 1 {
		yearsToKeep = 1
	}
	return &Sweeper{
		registryRepo:  registryRepo,
		telemetryRepo: telemetryRepo,
		yearsToKeep:   yearsToKeep,
		offlineAfter:  offlineAfter,
	}
}

// SweepTelemetry deletes every record whose partition year is strictly
// below currentYear - yearsToKeep. Partitions are all-or-nothing: the
// boundary year itself is always kept in full.
func (s *Sweeper) SweepTelemetry(ctx context.Context, dryRun bool) (*Report, error) {
	cutoffYear := time.Now().Year() - s.yearsToKeep

	var affected int64
	var err error
	if dryRun {
		affected, err = s.telemetryRepo.CountOlderThan(ctx, cutoffYear)
	} else {
		affected, err = s.telemetryRepo.DeleteOlderThan(ctx, cutoffYear)
	}
	if err != nil {
		return nil, err
	}

	if !dryRun && affected > 0 {
		metrics.SweepDeleted.Add(float64(affected))
	}

	logger.Info("Telemetry sweep completed",
		zap.Int("cutoff_year", cutoffYear),
		zap.Int64("records_affected", affected),
		zap.Bool("dry_run", dryRun),
		zap.String("event", "telemetry_sweep"),
	)

	return &Report{CutoffYear: cutoffYear, RecordsAffected: affected, DryRun: dryRun}, nil
}

// SweepOfflineScreens marks devices offline when they have not contacted
// the system within the staleness window.
func (s *Sweeper) SweepOfflineScreens(ctx context.Context, dryRun bool) (int64, error) {
	cutoff := time.Now().Add(-s.offlineAfter)

	affected, err := s.registryRepo.MarkStale(ctx, cutoff, dryRun)
	if err != nil {
		return 0, err
	}

	if !dryRun && affected > 0 {
		metrics.SweepMarkedOffline.Add(float64(affected))
	}

	logger.Info("Offline sweep completed",
		zap.Time("cutoff", cutoff),
		zap.Int64("devices_affected", affected),
		zap.Bool("dry_run", dryRun),
		zap.String("event", "offline_sweep"),
	)

	return affected, nil
}

// Run sweeps on a fixed interval until the context is cancelled. One
// pass runs immediately on start.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.sweepOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if _, err := s.SweepTelemetry(ctx, false); err != nil {
		logger.Error("Telemetry sweep failed", zap.Error(err))
	}
	if _, err := s.SweepOfflineScreens(ctx, false); err != nil {
		logger.Error("Offline sweep failed", zap.Error(err))
	}
}
