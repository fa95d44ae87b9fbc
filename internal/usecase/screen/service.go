package screen

import (
	"context"
	"time"

	"lxcloud/internal/domain/registry"
	"lxcloud/internal/domain/telemetry"
	"lxcloud/internal/usecase/assignment"
	appErrors "lxcloud/pkg/errors"

	"github.com/google/uuid"
)

const recentDataLimit = 100

// Service serves the read side of the dashboard: screen and controller
// listings plus per-screen telemetry history.
type Service struct {
	registryRepo  registry.Repository
	telemetryRepo telemetry.Repository
}

func NewService(registryRepo registry.Repository, telemetryRepo telemetry.Repository) *Service {
	return &Service{
		registryRepo:  registryRepo,
		telemetryRepo: telemetryRepo,
	}
}

// ListScreens returns every screen for administrators and only the
// requester's own screens otherwise.
func (s *Service) ListScreens(ctx context.Context, requesterID uuid.UUID, isAdmin bool) ([]*assignment.ScreenResponse, error) {
	var ownerFilter *uuid.UUID
	if !isAdmin {
		ownerFilter = &requesterID
	}

	screens, err := s.registryRepo.ListScreens(ctx, ownerFilter)
	if err != nil {
		return nil, err
	}

	out := make([]*assignment.ScreenResponse, 0, len(screens))
	for _, sc := range screens {
		out = append(out, assignment.ToScreenResponse(sc))
	}
	return out, nil
}

// ListControllers returns the unclaimed pool. The registration secret is
// included so operators can provision devices; the listing is therefore
// admin-gated at the transport layer.
func (s *Service) ListControllers(ctx context.Context) ([]*assignment.ControllerResponse, error) {
	controllers, err := s.registryRepo.ListControllers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*assignment.ControllerResponse, 0, len(controllers))
	for _, c := range controllers {
		out = append(out, assignment.ToControllerResponse(c))
	}
	return out, nil
}

// GetScreen returns a single screen, owner or admin only.
func (s *Service) GetScreen(ctx context.Context, serialNumber string, requesterID uuid.UUID, isAdmin bool) (*assignment.ScreenResponse, error) {
	sc, err := s.registryRepo.GetScreen(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	if !isAdmin && sc.OwnerID != requesterID {
		return nil, appErrors.ErrForbidden
	}
	return assignment.ToScreenResponse(sc), nil
}

// GetScreenData returns the most recent telemetry for a screen from the
// current year's partition, newest first.
func (s *Service) GetScreenData(ctx context.Context, serialNumber string, requesterID uuid.UUID, isAdmin bool) ([]*DataRecordResponse, error) {
	sc, err := s.registryRepo.GetScreen(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	if !isAdmin && sc.OwnerID != requesterID {
		return nil, appErrors.ErrForbidden
	}

	records, err := s.telemetryRepo.QueryRecent(ctx, sc.ID, time.Now().Year(), recentDataLimit)
	if err != nil {
		return nil, err
	}

	out := make([]*DataRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ToDataRecordResponse(r))
	}
	return out, nil
}
