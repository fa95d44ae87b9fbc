package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the append-only, year-partitioned telemetry store.
type Repository interface {
	// Append writes one record with PartitionYear taken from capturedAt.
	// Returns ErrScreenGone if the screen does not exist at write time.
	Append(ctx context.Context, screenID uuid.UUID, payload string, capturedAt time.Time) (*Record, error)

	// QueryRecent returns up to limit records for one screen and
	// partition year, newest first.
	QueryRecent(ctx context.Context, screenID uuid.UUID, year, limit int) ([]*Record, error)

	// DeleteOlderThan removes every record with PartitionYear strictly
	// below cutoffYear. Safe to run concurrently with Append; callers
	// must pass a cutoff in the past relative to the current write year.
	DeleteOlderThan(ctx context.Context, cutoffYear int) (int64, error)

	// CountOlderThan reports what DeleteOlderThan would remove. The
	// claim-lifecycle cascade is not part of this interface: postgres
	// deletes via the screen foreign key and the memory store drops the
	// records inside the demote transition.
	CountOlderThan(ctx context.Context, cutoffYear int) (int64, error)
}
