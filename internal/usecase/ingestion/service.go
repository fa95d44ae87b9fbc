package ingestion

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"lxcloud/internal/broadcast"
	"lxcloud/internal/devauth"
	"lxcloud/internal/domain/registry"
	"lxcloud/internal/domain/telemetry"
	"lxcloud/internal/logger"
	"lxcloud/internal/observability/metrics"
	appErrors "lxcloud/pkg/errors"
	"lxcloud/pkg/utils"

	"go.uber.org/zap"
)

const lockStripes = 64

// Service is the device-facing ingestion path. It classifies the calling
// serial number, refreshes liveness, persists telemetry for claimed
// screens only, and hands results to the broadcaster. Classification and
// the subsequent write run under a per-serial lock so a device unclaimed
// mid-flight cannot leave orphaned telemetry behind.
type Service struct {
	registryRepo  registry.Repository
	telemetryRepo telemetry.Repository
	publisher     broadcast.Publisher
	auth          *devauth.Authenticator

	// requireUpdateKey extends auth-key verification to the update path.
	requireUpdateKey bool

	locks [lockStripes]sync.Mutex
}

func NewService(
	registryRepo registry.Repository,
	telemetryRepo telemetry.Repository,
	publisher broadcast.Publisher,
	auth *devauth.Authenticator,
	requireUpdateKey bool,
) *Service {
	return &Service{
		registryRepo:     registryRepo,
		telemetryRepo:    telemetryRepo,
		publisher:        publisher,
		auth:             auth,
		requireUpdateKey: requireUpdateKey,
	}
}

// Register handles a controller's self-registration. An auth key, when
// supplied, must match the derived key for the serial; absence of the key
// is trusted as first-contact convenience.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Serial number is required", err)
	}

	if req.AuthKey != "" && !s.auth.Verify(req.SerialNumber, req.AuthKey) {
		logger.Warn("Controller registration rejected",
			zap.String("serial_number", req.SerialNumber),
			zap.String("event", "controller_auth_failed"),
		)
		return nil, appErrors.NewAppError("AUTH_FAILED", "Invalid authentication key", nil)
	}

	unlock := s.lockSerial(req.SerialNumber)
	defer unlock()

	classification, err := s.registryRepo.Classify(ctx, req.SerialNumber)
	if err != nil {
		return nil, err
	}
	if classification.State == registry.StateScreen {
		return nil, registry.ErrAlreadyClaimed
	}

	controller, err := s.registryRepo.UpsertControllerContact(ctx, req.SerialNumber, req.location())
	if errors.Is(err, registry.ErrSerialConflict) {
		return nil, registry.ErrAlreadyClaimed
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Controller registered",
		zap.String("serial_number", controller.SerialNumber),
		zap.String("event", "controller_registered"),
	)

	return &RegisterResponse{
		SerialNumber:    controller.SerialNumber,
		RegistrationKey: controller.RegistrationSecret,
		Status:          "awaiting_assignment",
	}, nil
}

// Ingest handles a device's periodic update. Devices always get an
// answer: unknown serials are auto-registered, unclaimed controllers are
// acknowledged with their payload discarded, and only claimed screens
// have telemetry persisted and broadcast.
func (s *Service) Ingest(ctx context.Context, req *UpdateRequest) (*UpdateResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Serial number is required", err)
	}

	if s.requireUpdateKey && !s.auth.Verify(req.SerialNumber, req.AuthKey) {
		return nil, appErrors.NewAppError("AUTH_FAILED", "Invalid authentication key", nil)
	}

	unlock := s.lockSerial(req.SerialNumber)
	defer unlock()

	classification, err := s.registryRepo.Classify(ctx, req.SerialNumber)
	if err != nil {
		return nil, err
	}

	switch classification.State {
	case registry.StateScreen:
		return s.ingestScreen(ctx, req, classification.Screen)
	case registry.StateController:
		err := s.registryRepo.TouchController(ctx, classification.Controller.ID, req.location())
		if errors.Is(err, registry.ErrControllerNotFound) {
			// Claimed or reset between classification and touch; resolve
			// the serial again so the device still gets an answer.
			return s.ingestReclassified(ctx, req)
		}
		if err != nil {
			return nil, err
		}
		metrics.IngestOutcomes.WithLabelValues(string(OutcomeAcknowledged)).Inc()
		return &UpdateResult{Outcome: OutcomeAcknowledged}, nil
	default:
		_, err := s.registryRepo.UpsertControllerContact(ctx, req.SerialNumber, req.location())
		if errors.Is(err, registry.ErrSerialConflict) {
			// The serial became a claimed screen mid-flight.
			return s.ingestReclassified(ctx, req)
		}
		if err != nil {
			return nil, err
		}
		logger.Info("Unknown device auto-registered",
			zap.String("serial_number", req.SerialNumber),
			zap.String("event", "device_auto_registered"),
		)
		metrics.IngestOutcomes.WithLabelValues(string(OutcomeRegistered)).Inc()
		return &UpdateResult{Outcome: OutcomeRegistered}, nil
	}
}

// ingestReclassified re-resolves a serial whose state changed underneath
// the first classification. A screen takes the normal stored path;
// anything else is acknowledged so the device never sees the race.
func (s *Service) ingestReclassified(ctx context.Context, req *UpdateRequest) (*UpdateResult, error) {
	classification, err := s.registryRepo.Classify(ctx, req.SerialNumber)
	if err != nil {
		return nil, err
	}

	if classification.State == registry.StateScreen {
		return s.ingestScreen(ctx, req, classification.Screen)
	}

	if _, err := s.registryRepo.UpsertControllerContact(ctx, req.SerialNumber, req.location()); err != nil &&
		!errors.Is(err, registry.ErrSerialConflict) {
		return nil, err
	}
	metrics.IngestOutcomes.WithLabelValues(string(OutcomeAcknowledged)).Inc()
	return &UpdateResult{Outcome: OutcomeAcknowledged}, nil
}

func (s *Service) ingestScreen(ctx context.Context, req *UpdateRequest, screen *registry.Screen) (*UpdateResult, error) {
	if err := s.registryRepo.TouchScreen(ctx, screen.ID, req.location()); err != nil {
		if errors.Is(err, registry.ErrScreenNotFound) {
			// Unclaimed between classification and touch; treat like a
			// controller contact so the device still gets an answer. A
			// conflict here means the serial was claimed yet again.
			if _, uerr := s.registryRepo.UpsertControllerContact(ctx, req.SerialNumber, req.location()); uerr != nil &&
				!errors.Is(uerr, registry.ErrSerialConflict) {
				return nil, uerr
			}
			metrics.IngestOutcomes.WithLabelValues(string(OutcomeAcknowledged)).Inc()
			return &UpdateResult{Outcome: OutcomeAcknowledged}, nil
		}
		return nil, err
	}

	now := time.Now()
	persisted := false

	if req.Information != "" {
		// Capture time is the server clock; partition year derives from
		// it, never from anything the device supplies.
		_, err := s.telemetryRepo.Append(ctx, screen.ID, req.Information, now)
		if err != nil && !errors.Is(err, telemetry.ErrScreenGone) {
			return nil, err
		}
		if err == nil {
			persisted = true
			metrics.TelemetryWritten.Inc()
		}
	}

	event := broadcast.ScreenUpdate{
		ScreenID:     screen.ID,
		SerialNumber: screen.SerialNumber,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		OnlineStatus: true,
		Information:  req.Information,
		Timestamp:    now,
	}
	// Fan-out must never delay or fail the device's response.
	go s.publisher.Publish(event)

	metrics.IngestOutcomes.WithLabelValues(string(OutcomeStored)).Inc()

	return &UpdateResult{
		Outcome:   OutcomeStored,
		ScreenID:  &screen.ID,
		Persisted: persisted,
	}, nil
}

// lockSerial serializes the classify-then-write sequence per serial
// number using striped mutexes.
func (s *Service) lockSerial(serialNumber string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(serialNumber))
	stripe := &s.locks[h.Sum32()%lockStripes]
	stripe.Lock()
	return stripe.Unlock
}
