package memory

import (
	"context"
	"sort"
	"time"

	"lxcloud/internal/domain/telemetry"

	"github.com/google/uuid"
)

type telemetryView struct {
	store *Store
}

func (v *telemetryView) Append(_ context.Context, screenID uuid.UUID, payload string, capturedAt time.Time) (*telemetry.Record, error) {
	if payload == "" {
		return nil, telemetry.ErrEmptyPayload
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if !v.screenExistsLocked(screenID) {
		return nil, telemetry.ErrScreenGone
	}

	record := &telemetry.Record{
		ID:            uuid.New(),
		ScreenID:      screenID,
		Payload:       payload,
		CapturedAt:    capturedAt,
		PartitionYear: capturedAt.Year(),
	}
	v.store.telemetry[screenID] = append(v.store.telemetry[screenID], record)

	return copyRecord(record), nil
}

func (v *telemetryView) QueryRecent(_ context.Context, screenID uuid.UUID, year, limit int) ([]*telemetry.Record, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	var matches []*telemetry.Record
	for _, r := range v.store.telemetry[screenID] {
		if r.PartitionYear == year {
			matches = append(matches, copyRecord(r))
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CapturedAt.After(matches[j].CapturedAt)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

func (v *telemetryView) DeleteOlderThan(_ context.Context, cutoffYear int) (int64, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	var deleted int64
	for screenID, records := range v.store.telemetry {
		kept := records[:0]
		for _, r := range records {
			if r.PartitionYear < cutoffYear {
				deleted++
			} else {
				kept = append(kept, r)
			}
		}
		v.store.telemetry[screenID] = kept
	}

	return deleted, nil
}

func (v *telemetryView) CountOlderThan(_ context.Context, cutoffYear int) (int64, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	var count int64
	for _, records := range v.store.telemetry {
		for _, r := range records {
			if r.PartitionYear < cutoffYear {
				count++
			}
		}
	}

	return count, nil
}

func (v *telemetryView) screenExistsLocked(screenID uuid.UUID) bool {
	for _, sc := range v.store.screens {
		if sc.ID == screenID {
			return true
		}
	}
	return false
}
