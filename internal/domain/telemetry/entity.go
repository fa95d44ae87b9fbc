package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Record is one telemetry payload reported by a claimed screen. Records
// are immutable once written; only the retention sweep removes them.
// PartitionYear is derived from CapturedAt at write time and is the only
// field retention queries use.
type Record struct {
	ID            uuid.UUID
	ScreenID      uuid.UUID
	Payload       string
	CapturedAt    time.Time
	PartitionYear int
}
