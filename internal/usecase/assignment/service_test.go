package assignment

import (
	"context"
	"testing"
	"time"

	"lxcloud/internal/domain/registry"
	"lxcloud/internal/infrastructure/database/memory"
	"lxcloud/internal/logger"
	appErrors "lxcloud/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitForTest()
	m.Run()
}

func seedController(t *testing.T, store *memory.Store, serialNumber string) {
	t.Helper()
	_, err := store.Registry().UpsertControllerContact(context.Background(), serialNumber, nil)
	require.NoError(t, err)
}

func TestAssignKnownController(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)
	ownerID := uuid.New()
	seedController(t, store, "SN-100")

	screen, err := svc.Assign(context.Background(), &ClaimRequest{SerialNumber: "SN-100", DisplayName: "lobby"}, ownerID)
	require.NoError(t, err)
	assert.Equal(t, ownerID, screen.OwnerID)
	assert.Equal(t, "lobby", screen.DisplayName)
}

func TestAssignUnseenSerialRejectedByDefault(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)

	_, err := svc.Assign(context.Background(), &ClaimRequest{SerialNumber: "SN-ghost"}, uuid.New())
	assert.ErrorIs(t, err, registry.ErrControllerNotFound)
}

func TestAssignUnseenSerialWithOverride(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), true)

	screen, err := svc.Assign(context.Background(), &ClaimRequest{SerialNumber: "SN-ghost"}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "SN-ghost", screen.SerialNumber)
}

func TestAssignTwiceConflicts(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)
	seedController(t, store, "SN-100")

	_, err := svc.Assign(context.Background(), &ClaimRequest{SerialNumber: "SN-100"}, uuid.New())
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), &ClaimRequest{SerialNumber: "SN-100"}, uuid.New())
	assert.ErrorIs(t, err, registry.ErrAlreadyClaimed)
}

func TestUnassignOwnershipCheck(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)
	ctx := context.Background()
	ownerID := uuid.New()
	seedController(t, store, "SN-100")

	_, err := svc.Assign(ctx, &ClaimRequest{SerialNumber: "SN-100"}, ownerID)
	require.NoError(t, err)

	_, err = svc.Unassign(ctx, "SN-100", uuid.New(), false)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	controller, err := svc.Unassign(ctx, "SN-100", ownerID, false)
	require.NoError(t, err)
	assert.NotEmpty(t, controller.RegistrationKey)
}

func TestUnassignAsAdmin(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)
	ctx := context.Background()
	seedController(t, store, "SN-100")

	_, err := svc.Assign(ctx, &ClaimRequest{SerialNumber: "SN-100"}, uuid.New())
	require.NoError(t, err)

	_, err = svc.Unassign(ctx, "SN-100", uuid.New(), true)
	assert.NoError(t, err)
}

func TestRename(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)
	ctx := context.Background()
	ownerID := uuid.New()
	seedController(t, store, "SN-100")

	_, err := svc.Assign(ctx, &ClaimRequest{SerialNumber: "SN-100", DisplayName: "old"}, ownerID)
	require.NoError(t, err)

	screen, err := svc.Rename(ctx, "SN-100", &RenameRequest{DisplayName: "new"}, ownerID, false)
	require.NoError(t, err)
	assert.Equal(t, "new", screen.DisplayName)
}

func TestDeleteResetsToController(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)
	ctx := context.Background()
	ownerID := uuid.New()
	seedController(t, store, "SN-100")

	screen, err := svc.Assign(ctx, &ClaimRequest{SerialNumber: "SN-100"}, ownerID)
	require.NoError(t, err)
	_, err = store.Telemetry().Append(ctx, screen.ID, "p", time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "SN-100", ownerID, false))

	classification, err := store.Registry().Classify(ctx, "SN-100")
	require.NoError(t, err)
	assert.Equal(t, registry.StateController, classification.State)

	records, err := store.Telemetry().QueryRecent(ctx, screen.ID, time.Now().Year(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBulkUnassignForOwner(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Registry(), false)
	ctx := context.Background()
	ownerID := uuid.New()
	otherID := uuid.New()

	for _, sn := range []string{"SN-1", "SN-2", "SN-3"} {
		seedController(t, store, sn)
		_, err := svc.Assign(ctx, &ClaimRequest{SerialNumber: sn}, ownerID)
		require.NoError(t, err)
	}
	seedController(t, store, "SN-other")
	_, err := svc.Assign(ctx, &ClaimRequest{SerialNumber: "SN-other"}, otherID)
	require.NoError(t, err)

	count, err := svc.BulkUnassignForOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	remaining, err := store.Registry().ListScreens(ctx, nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "SN-other", remaining[0].SerialNumber)
}
