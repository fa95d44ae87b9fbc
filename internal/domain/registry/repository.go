package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the durable mapping of serial numbers to lifecycle
// records. Implementations must keep controller and screen records
// mutually exclusive per serial, and must make Claim, Unclaim and
// DeleteScreen atomic: two concurrent Claim calls for the same serial
// yield exactly one success.
type Repository interface {
	// UpsertControllerContact creates a controller with a fresh
	// registration secret on first contact, or refreshes
	// location/online/last-seen on a known controller. It never touches
	// screen records; callers classify first.
	UpsertControllerContact(ctx context.Context, serialNumber string, loc *Location) (*Controller, error)

	// Classify resolves a serial number from one consistent read.
	Classify(ctx context.Context, serialNumber string) (*Classification, error)

	// Claim promotes a controller to a screen, carrying over location,
	// online and last-seen. Returns ErrAlreadyClaimed if the serial is a
	// screen and ErrControllerNotFound if it has never been seen.
	Claim(ctx context.Context, serialNumber string, ownerID uuid.UUID, displayName string) (*Screen, error)

	// Unclaim demotes a screen back to a controller with a new
	// registration secret. The screen's telemetry is cascade-deleted.
	Unclaim(ctx context.Context, serialNumber string) (*Controller, error)

	// DeleteScreen removes a screen, cascades its telemetry, and
	// reinserts the serial as a fresh controller in the same transaction
	// so the hardware is never orphaned.
	DeleteScreen(ctx context.Context, serialNumber string) (*Controller, error)

	// TouchController and TouchScreen update location/online/last-seen
	// only. These are the sole mutations the ingestion path performs on
	// existing records.
	TouchController(ctx context.Context, id uuid.UUID, loc *Location) error
	TouchScreen(ctx context.Context, id uuid.UUID, loc *Location) error

	// RenameScreen updates the operator-facing display name.
	RenameScreen(ctx context.Context, serialNumber, displayName string) (*Screen, error)

	GetScreen(ctx context.Context, serialNumber string) (*Screen, error)
	ListControllers(ctx context.Context) ([]*Controller, error)
	ListScreens(ctx context.Context, ownerID *uuid.UUID) ([]*Screen, error)
	ScreensByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Screen, error)

	// MarkStale flips online=false on controllers and screens whose
	// last-seen is before the cutoff. With dryRun it only counts.
	MarkStale(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error)
}
