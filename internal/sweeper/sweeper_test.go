package sweeper

import (
	"context"
	"testing"
	"time"

	"lxcloud/internal/infrastructure/database/memory"
	"lxcloud/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitForTest()
	m.Run()
}

func seedScreenWithHistory(t *testing.T, store *memory.Store, serialNumber string, years []int) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	_, err := store.Registry().UpsertControllerContact(ctx, serialNumber, nil)
	require.NoError(t, err)
	screen, err := store.Registry().Claim(ctx, serialNumber, uuid.New(), "")
	require.NoError(t, err)

	for _, y := range years {
		_, err = store.Telemetry().Append(ctx, screen.ID, "p",
			time.Date(y, 6, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	return screen.ID
}

func TestSweepTelemetryDeletesExpiredYears(t *testing.T) {
	store := memory.NewStore()
	year := time.Now().Year()
	screenID := seedScreenWithHistory(t, store, "SN-100", []int{year - 3, year - 2, year - 1, year})

	sw := New(store.Registry(), store.Telemetry(), 1, time.Hour)

	report, err := sw.SweepTelemetry(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, year-1, report.CutoffYear)
	assert.Equal(t, int64(2), report.RecordsAffected)
	assert.False(t, report.DryRun)

	// The cutoff year itself survives in full.
	records, err := store.Telemetry().QueryRecent(context.Background(), screenID, year-1, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSweepTelemetryDryRun(t *testing.T) {
	store := memory.NewStore()
	year := time.Now().Year()
	screenID := seedScreenWithHistory(t, store, "SN-100", []int{year - 2, year})

	sw := New(store.Registry(), store.Telemetry(), 1, time.Hour)

	report, err := sw.SweepTelemetry(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.RecordsAffected)
	assert.True(t, report.DryRun)

	// Nothing was deleted.
	records, err := store.Telemetry().QueryRecent(context.Background(), screenID, year-2, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSweepTelemetryMinimumRetention(t *testing.T) {
	store := memory.NewStore()
	year := time.Now().Year()
	seedScreenWithHistory(t, store, "SN-100", []int{year - 1, year})

	// yearsToKeep below 1 is clamped to 1.
	sw := New(store.Registry(), store.Telemetry(), 0, time.Hour)

	report, err := sw.SweepTelemetry(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, year-1, report.CutoffYear)
	assert.Zero(t, report.RecordsAffected)
}

func TestSweepOfflineScreens(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedScreenWithHistory(t, store, "SN-100", nil)

	sw := New(store.Registry(), store.Telemetry(), 1, time.Hour)

	// Freshly touched; nothing is stale.
	marked, err := sw.SweepOfflineScreens(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, marked)

	// A zero staleness window makes every device stale.
	sw = New(store.Registry(), store.Telemetry(), 1, 0)
	time.Sleep(10 * time.Millisecond)
	marked, err = sw.SweepOfflineScreens(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	screen, err := store.Registry().GetScreen(ctx, "SN-100")
	require.NoError(t, err)
	assert.False(t, screen.Online)
}
