package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"lxcloud/internal/broadcast"
	"lxcloud/internal/devauth"
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

type capturingPublisher struct {
	events chan broadcast.ScreenUpdate
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{events: make(chan broadcast.ScreenUpdate, 16)}
}

func (p *capturingPublisher) Publish(event broadcast.ScreenUpdate) {
	p.events <- event
}

func (p *capturingPublisher) waitForEvent(t *testing.T) broadcast.ScreenUpdate {
	t.Helper()
	select {
	case event := <-p.events:
		return event
	case <-time.After(time.Second):
		t.Fatal("expected broadcast event was not published")
		return broadcast.ScreenUpdate{}
	}
}

func newTestService(t *testing.T) (*Service, *memory.Store, *capturingPublisher) {
	t.Helper()
	store := memory.NewStore()
	pub := newCapturingPublisher()
	auth := devauth.New("lxcloud-controller-")
	svc := NewService(store.Registry(), store.Telemetry(), pub, auth, false)
	return svc, store, pub
}

func TestRegisterNewController(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Register(context.Background(), &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)
	assert.Equal(t, "SN-100", resp.SerialNumber)
	assert.NotEmpty(t, resp.RegistrationKey)
	assert.Equal(t, "awaiting_assignment", resp.Status)
}

func TestRegisterRepeatKeepsSecret(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)

	second, err := svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)
	assert.Equal(t, first.RegistrationKey, second.RegistrationKey)
}

func TestRegisterClaimedSerialIsRejected(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)
	_, err = store.Registry().Claim(ctx, "SN-100", uuid.New(), "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	assert.ErrorIs(t, err, registry.ErrAlreadyClaimed)
}

func TestRegisterWithAuthKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	auth := devauth.New("lxcloud-controller-")

	_, err := svc.Register(ctx, &RegisterRequest{
		SerialNumber: "SN-100",
		AuthKey:      auth.DeriveKey("SN-100"),
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-200", AuthKey: "wrong"})
	require.Error(t, err)
	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_FAILED", appErr.Code)
}

func TestIngestUnknownSerialAutoRegisters(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "dropped"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, result.Outcome)
	assert.False(t, result.Persisted)

	classification, err := store.Registry().Classify(ctx, "SN-100")
	require.NoError(t, err)
	assert.Equal(t, registry.StateController, classification.State)
}

func TestIngestUnclaimedControllerDiscardsPayload(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)

	result, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "hello"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAcknowledged, result.Outcome)
	assert.False(t, result.Persisted)

	// No telemetry anywhere; the serial has no screen to attach it to.
	classification, err := store.Registry().Classify(ctx, "SN-100")
	require.NoError(t, err)
	require.NotNil(t, classification.Controller)
	records, err := store.Telemetry().QueryRecent(ctx, classification.Controller.ID, time.Now().Year(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIngestClaimedScreenStoresAndBroadcasts(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)
	screen, err := store.Registry().Claim(ctx, "SN-100", uuid.New(), "lobby")
	require.NoError(t, err)

	result, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "temp=21"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, result.Outcome)
	assert.True(t, result.Persisted)
	require.NotNil(t, result.ScreenID)
	assert.Equal(t, screen.ID, *result.ScreenID)

	records, err := store.Telemetry().QueryRecent(ctx, screen.ID, time.Now().Year(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "temp=21", records[0].Payload)
	assert.Equal(t, records[0].CapturedAt.Year(), records[0].PartitionYear)

	event := pub.waitForEvent(t)
	assert.Equal(t, "SN-100", event.SerialNumber)
	assert.Equal(t, "temp=21", event.Information)
	assert.True(t, event.OnlineStatus)
}

func TestIngestClaimedScreenEmptyPayload(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)
	screen, err := store.Registry().Claim(ctx, "SN-100", uuid.New(), "")
	require.NoError(t, err)

	result, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, result.Outcome)
	assert.False(t, result.Persisted, "empty payload must not create a record")

	records, err := store.Telemetry().QueryRecent(ctx, screen.ID, time.Now().Year(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Liveness still broadcast.
	event := pub.waitForEvent(t)
	assert.Equal(t, "SN-100", event.SerialNumber)
}

func TestIngestRequireUpdateKey(t *testing.T) {
	store := memory.NewStore()
	auth := devauth.New("lxcloud-controller-")
	svc := NewService(store.Registry(), store.Telemetry(), newCapturingPublisher(), auth, true)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100"})
	require.Error(t, err)

	result, err := svc.Ingest(ctx, &UpdateRequest{
		SerialNumber: "SN-100",
		AuthKey:      auth.DeriveKey("SN-100"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, result.Outcome)
}

// claimOnTouchRepo claims the serial just before delegating
// TouchController, reproducing an assignment racing the update path.
type claimOnTouchRepo struct {
	registry.Repository
	serialNumber string
	ownerID      uuid.UUID
	once         sync.Once
}

func (r *claimOnTouchRepo) TouchController(ctx context.Context, id uuid.UUID, loc *registry.Location) error {
	r.once.Do(func() {
		_, _ = r.Repository.Claim(ctx, r.serialNumber, r.ownerID, "")
	})
	return r.Repository.TouchController(ctx, id, loc)
}

func TestIngestControllerClaimedMidUpdate(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturingPublisher()
	ctx := context.Background()

	_, err := store.Registry().UpsertControllerContact(ctx, "SN-100", nil)
	require.NoError(t, err)

	repo := &claimOnTouchRepo{
		Repository:   store.Registry(),
		serialNumber: "SN-100",
		ownerID:      uuid.New(),
	}
	svc := NewService(repo, store.Telemetry(), pub, devauth.New("lxcloud-controller-"), false)

	// The touch fails because the controller row is gone; the update must
	// land on the freshly claimed screen instead of erroring out.
	result, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "temp=21"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, result.Outcome)
	assert.True(t, result.Persisted)
	pub.waitForEvent(t)
}

// claimBeforeUpsertRepo claims the serial just before delegating the
// unknown-branch upsert, reproducing a blind claim racing auto-register.
type claimBeforeUpsertRepo struct {
	registry.Repository
	ownerID uuid.UUID
	once    sync.Once
}

func (r *claimBeforeUpsertRepo) UpsertControllerContact(ctx context.Context, serialNumber string, loc *registry.Location) (*registry.Controller, error) {
	r.once.Do(func() {
		_, _ = r.Repository.UpsertControllerContact(ctx, serialNumber, nil)
		_, _ = r.Repository.Claim(ctx, serialNumber, r.ownerID, "")
	})
	return r.Repository.UpsertControllerContact(ctx, serialNumber, loc)
}

func TestIngestUnknownSerialClaimedMidUpdate(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturingPublisher()
	ctx := context.Background()

	repo := &claimBeforeUpsertRepo{
		Repository: store.Registry(),
		ownerID:    uuid.New(),
	}
	svc := NewService(repo, store.Telemetry(), pub, devauth.New("lxcloud-controller-"), false)

	// The upsert hits the serial conflict; the update is redelivered to
	// the screen and the serial never reenters the unclaimed pool.
	result, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "temp=21"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, result.Outcome)
	assert.True(t, result.Persisted)

	controllers, err := store.Registry().ListControllers(ctx)
	require.NoError(t, err)
	assert.Empty(t, controllers)
}

// Full device lifecycle: register, update while unclaimed, claim, update
// while claimed, unclaim, verify secret rotation and telemetry cascade.
func TestDeviceLifecycle(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()
	ownerID := uuid.New()

	reg, err := svc.Register(ctx, &RegisterRequest{SerialNumber: "SN-100"})
	require.NoError(t, err)
	originalSecret := reg.RegistrationKey

	result, err := svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "hello"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAcknowledged, result.Outcome)

	screen, err := store.Registry().Claim(ctx, "SN-100", ownerID, "lobby")
	require.NoError(t, err)

	result, err = svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "world"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, result.Outcome)
	assert.True(t, result.Persisted)
	pub.waitForEvent(t)

	records, err := store.Telemetry().QueryRecent(ctx, screen.ID, time.Now().Year(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "world", records[0].Payload, "only the post-claim payload is stored")

	reborn, err := store.Registry().Unclaim(ctx, "SN-100")
	require.NoError(t, err)
	assert.NotEqual(t, originalSecret, reborn.RegistrationSecret)

	records, err = store.Telemetry().QueryRecent(ctx, screen.ID, time.Now().Year(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	result, err = svc.Ingest(ctx, &UpdateRequest{SerialNumber: "SN-100", Information: "again"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAcknowledged, result.Outcome)
}

func TestIngestValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Ingest(context.Background(), &UpdateRequest{})
	require.Error(t, err)
	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	lat := 120.0
	_, err = svc.Ingest(context.Background(), &UpdateRequest{SerialNumber: "SN-100", Latitude: &lat})
	assert.Error(t, err)
}
