package assignment

import (
	"context"
	"errors"

	"lxcloud/internal/domain/registry"
	"lxcloud/internal/logger"
	appErrors "lxcloud/pkg/errors"
	"lxcloud/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service orchestrates the claim/unclaim lifecycle between controllers
// and screens. Ownership checks happen here; the registry store only
// enforces state-transition atomicity.
type Service struct {
	registryRepo registry.Repository

	// allowUnseenClaim permits claiming a serial that has never
	// contacted the system, creating its controller record on the fly.
	allowUnseenClaim bool
}

func NewService(registryRepo registry.Repository, allowUnseenClaim bool) *Service {
	return &Service{
		registryRepo:     registryRepo,
		allowUnseenClaim: allowUnseenClaim,
	}
}

// Assign claims an unclaimed controller for an owner. The device must
// have contacted the system at least once; otherwise the caller gets a
// clear not-registered result instead of a bare screen.
func (s *Service) Assign(ctx context.Context, req *ClaimRequest, ownerID uuid.UUID) (*ScreenResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Serial number is required", err)
	}

	displayName := utils.SanitizeString(req.DisplayName)

	screen, err := s.registryRepo.Claim(ctx, req.SerialNumber, ownerID, displayName)
	if errors.Is(err, registry.ErrControllerNotFound) && s.allowUnseenClaim {
		if _, uerr := s.registryRepo.UpsertControllerContact(ctx, req.SerialNumber, nil); uerr != nil {
			if errors.Is(uerr, registry.ErrSerialConflict) {
				return nil, registry.ErrAlreadyClaimed
			}
			return nil, uerr
		}
		screen, err = s.registryRepo.Claim(ctx, req.SerialNumber, ownerID, displayName)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Screen assigned",
		zap.String("serial_number", screen.SerialNumber),
		zap.String("owner_id", ownerID.String()),
		zap.String("event", "screen_assigned"),
	)

	return ToScreenResponse(screen), nil
}

// Unassign returns a screen to the unclaimed pool. Only the owner or an
// administrator may do this; the screen's telemetry is cascade-deleted
// and the reborn controller gets a fresh registration secret.
func (s *Service) Unassign(ctx context.Context, serialNumber string, requesterID uuid.UUID, isAdmin bool) (*ControllerResponse, error) {
	if err := s.authorize(ctx, serialNumber, requesterID, isAdmin); err != nil {
		return nil, err
	}

	controller, err := s.registryRepo.Unclaim(ctx, serialNumber)
	if err != nil {
		return nil, err
	}

	logger.Info("Screen unassigned",
		zap.String("serial_number", serialNumber),
		zap.String("requester_id", requesterID.String()),
		zap.String("event", "screen_unassigned"),
	)

	return ToControllerResponse(controller), nil
}

// Rename updates a screen's display name.
func (s *Service) Rename(ctx context.Context, serialNumber string, req *RenameRequest, requesterID uuid.UUID, isAdmin bool) (*ScreenResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Display name is required", err)
	}

	if err := s.authorize(ctx, serialNumber, requesterID, isAdmin); err != nil {
		return nil, err
	}

	screen, err := s.registryRepo.RenameScreen(ctx, serialNumber, utils.SanitizeString(req.DisplayName))
	if err != nil {
		return nil, err
	}

	return ToScreenResponse(screen), nil
}

// Delete removes a screen. Product policy is delete-as-reset: telemetry
// is cascaded away and the serial is reborn as an unclaimed controller
// in the same store transaction, so the hardware is never orphaned.
func (s *Service) Delete(ctx context.Context, serialNumber string, requesterID uuid.UUID, isAdmin bool) error {
	if err := s.authorize(ctx, serialNumber, requesterID, isAdmin); err != nil {
		return err
	}

	if _, err := s.registryRepo.DeleteScreen(ctx, serialNumber); err != nil {
		return err
	}

	logger.Info("Screen deleted",
		zap.String("serial_number", serialNumber),
		zap.String("requester_id", requesterID.String()),
		zap.String("event", "screen_deleted"),
	)

	return nil
}

// BulkUnassignForOwner unclaims every screen owned by ownerID, used when
// an owner account is removed. Each device is handled independently; the
// returned count reports how many succeeded even on partial failure.
func (s *Service) BulkUnassignForOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	screens, err := s.registryRepo.ScreensByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	succeeded := 0
	var lastErr error
	for _, screen := range screens {
		if _, uerr := s.registryRepo.Unclaim(ctx, screen.SerialNumber); uerr != nil {
			lastErr = uerr
			logger.Error("Failed to unassign screen during bulk unassign",
				zap.String("serial_number", screen.SerialNumber),
				zap.Error(uerr),
			)
			continue
		}
		succeeded++
	}

	logger.Info("Bulk unassign completed",
		zap.String("owner_id", ownerID.String()),
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(screens)),
		zap.String("event", "bulk_unassign_completed"),
	)

	return succeeded, lastErr
}

func (s *Service) authorize(ctx context.Context, serialNumber string, requesterID uuid.UUID, isAdmin bool) error {
	screen, err := s.registryRepo.GetScreen(ctx, serialNumber)
	if err != nil {
		return err
	}

	if !isAdmin && screen.OwnerID != requesterID {
		return appErrors.ErrForbidden
	}

	return nil
}
