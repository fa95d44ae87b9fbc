package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lxcloud/internal/devauth"
	"lxcloud/internal/domain/registry"
	"lxcloud/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistryRepository implements registry.Repository on postgres. Lifecycle
// transitions run in one transaction with the affected rows locked, so
// concurrent claims of the same serial resolve to one winner.
type RegistryRepository struct {
	db *DB
}

func NewRegistryRepository(db *DB) registry.Repository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) UpsertControllerContact(ctx context.Context, serialNumber string, loc *registry.Location) (*registry.Controller, error) {
	var out *registry.Controller

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A claimed serial must never reappear as a controller; lock the
		// screen row so a concurrent demote cannot slip between the check
		// and the insert.
		var screenModel models.ScreenModel
		serr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("serial_number = ?", serialNumber).
			First(&screenModel).Error
		if serr == nil {
			return registry.ErrSerialConflict
		}
		if !errors.Is(serr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up screen: %w", serr)
		}

		var dbModel models.ControllerModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("serial_number = ?", serialNumber).
			First(&dbModel).Error

		now := time.Now()

		if errors.Is(err, gorm.ErrRecordNotFound) {
			secret, serr := devauth.NewRegistrationSecret()
			if serr != nil {
				return fmt.Errorf("failed to generate registration secret: %w", serr)
			}

			dbModel = models.ControllerModel{
				ID:                 uuid.New(),
				SerialNumber:       serialNumber,
				RegistrationSecret: secret,
				Online:             true,
				LastSeenAt:         &now,
				CreatedAt:          now,
			}
			applyLocationToController(&dbModel, loc)

			if cerr := tx.Create(&dbModel).Error; cerr != nil {
				if errors.Is(cerr, gorm.ErrDuplicatedKey) {
					return registry.ErrSerialConflict
				}
				return fmt.Errorf("failed to create controller: %w", cerr)
			}

			out = toControllerEntity(&dbModel)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up controller: %w", err)
		}

		dbModel.Online = true
		dbModel.LastSeenAt = &now
		applyLocationToController(&dbModel, loc)

		if uerr := tx.Save(&dbModel).Error; uerr != nil {
			return fmt.Errorf("failed to update controller: %w", uerr)
		}

		out = toControllerEntity(&dbModel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *RegistryRepository) Classify(ctx context.Context, serialNumber string) (*registry.Classification, error) {
	var result *registry.Classification

	// Both lookups inside one transaction so the answer reflects a single
	// consistent snapshot of the two tables.
	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var screenModel models.ScreenModel
		err := tx.Where("serial_number = ?", serialNumber).First(&screenModel).Error
		if err == nil {
			result = &registry.Classification{
				State:  registry.StateScreen,
				Screen: toScreenEntity(&screenModel),
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up screen: %w", err)
		}

		var controllerModel models.ControllerModel
		err = tx.Where("serial_number = ?", serialNumber).First(&controllerModel).Error
		if err == nil {
			result = &registry.Classification{
				State:      registry.StateController,
				Controller: toControllerEntity(&controllerModel),
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up controller: %w", err)
		}

		result = &registry.Classification{State: registry.StateUnknown}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *RegistryRepository) Claim(ctx context.Context, serialNumber string, ownerID uuid.UUID, displayName string) (*registry.Screen, error) {
	var out *registry.Screen

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var controllerModel models.ControllerModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("serial_number = ?", serialNumber).
			First(&controllerModel).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			var screenModel models.ScreenModel
			serr := tx.Where("serial_number = ?", serialNumber).First(&screenModel).Error
			if serr == nil {
				return registry.ErrAlreadyClaimed
			}
			if !errors.Is(serr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up screen: %w", serr)
			}
			return registry.ErrControllerNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to look up controller: %w", err)
		}

		screenModel := models.ScreenModel{
			ID:           uuid.New(),
			SerialNumber: serialNumber,
			OwnerID:      ownerID,
			DisplayName:  displayName,
			Latitude:     controllerModel.Latitude,
			Longitude:    controllerModel.Longitude,
			Online:       controllerModel.Online,
			LastSeenAt:   controllerModel.LastSeenAt,
			CreatedAt:    time.Now(),
		}

		if cerr := tx.Create(&screenModel).Error; cerr != nil {
			if errors.Is(cerr, gorm.ErrDuplicatedKey) {
				return registry.ErrAlreadyClaimed
			}
			return fmt.Errorf("failed to create screen: %w", cerr)
		}

		if derr := tx.Delete(&models.ControllerModel{}, "id = ?", controllerModel.ID).Error; derr != nil {
			return fmt.Errorf("failed to remove controller: %w", derr)
		}

		out = toScreenEntity(&screenModel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *RegistryRepository) Unclaim(ctx context.Context, serialNumber string) (*registry.Controller, error) {
	return r.demoteScreen(ctx, serialNumber)
}

func (r *RegistryRepository) DeleteScreen(ctx context.Context, serialNumber string) (*registry.Controller, error) {
	return r.demoteScreen(ctx, serialNumber)
}

// demoteScreen converts a screen back to a fresh controller. Deleting the
// screen row cascades its telemetry at the database level; the new
// controller gets a new registration secret so the old one is dead.
func (r *RegistryRepository) demoteScreen(ctx context.Context, serialNumber string) (*registry.Controller, error) {
	var out *registry.Controller

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var screenModel models.ScreenModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("serial_number = ?", serialNumber).
			First(&screenModel).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return registry.ErrScreenNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to look up screen: %w", err)
		}

		secret, serr := devauth.NewRegistrationSecret()
		if serr != nil {
			return fmt.Errorf("failed to generate registration secret: %w", serr)
		}

		controllerModel := models.ControllerModel{
			ID:                 uuid.New(),
			SerialNumber:       serialNumber,
			RegistrationSecret: secret,
			Latitude:           screenModel.Latitude,
			Longitude:          screenModel.Longitude,
			Online:             screenModel.Online,
			LastSeenAt:         screenModel.LastSeenAt,
			CreatedAt:          time.Now(),
		}

		if derr := tx.Delete(&models.ScreenModel{}, "id = ?", screenModel.ID).Error; derr != nil {
			return fmt.Errorf("failed to remove screen: %w", derr)
		}

		if cerr := tx.Create(&controllerModel).Error; cerr != nil {
			return fmt.Errorf("failed to recreate controller: %w", cerr)
		}

		out = toControllerEntity(&controllerModel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *RegistryRepository) TouchController(ctx context.Context, id uuid.UUID, loc *registry.Location) error {
	return r.touch(ctx, &models.ControllerModel{}, id, loc, registry.ErrControllerNotFound)
}

func (r *RegistryRepository) TouchScreen(ctx context.Context, id uuid.UUID, loc *registry.Location) error {
	return r.touch(ctx, &models.ScreenModel{}, id, loc, registry.ErrScreenNotFound)
}

func (r *RegistryRepository) touch(ctx context.Context, model interface{}, id uuid.UUID, loc *registry.Location, notFound error) error {
	updates := map[string]interface{}{
		"online":       true,
		"last_seen_at": time.Now(),
	}
	if loc != nil {
		if loc.Latitude != nil {
			updates["latitude"] = *loc.Latitude
		}
		if loc.Longitude != nil {
			updates["longitude"] = *loc.Longitude
		}
	}

	result := r.db.DB.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update liveness: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound
	}

	return nil
}

func (r *RegistryRepository) RenameScreen(ctx context.Context, serialNumber, displayName string) (*registry.Screen, error) {
	result := r.db.DB.WithContext(ctx).
		Model(&models.ScreenModel{}).
		Where("serial_number = ?", serialNumber).
		Update("display_name", displayName)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to rename screen: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, registry.ErrScreenNotFound
	}

	return r.GetScreen(ctx, serialNumber)
}

func (r *RegistryRepository) GetScreen(ctx context.Context, serialNumber string) (*registry.Screen, error) {
	var dbModel models.ScreenModel
	err := r.db.DB.WithContext(ctx).
		Where("serial_number = ?", serialNumber).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, registry.ErrScreenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screen: %w", err)
	}

	return toScreenEntity(&dbModel), nil
}

func (r *RegistryRepository) ListControllers(ctx context.Context) ([]*registry.Controller, error) {
	var dbModels []models.ControllerModel
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list controllers: %w", err)
	}

	controllers := make([]*registry.Controller, len(dbModels))
	for i := range dbModels {
		controllers[i] = toControllerEntity(&dbModels[i])
	}

	return controllers, nil
}

func (r *RegistryRepository) ListScreens(ctx context.Context, ownerID *uuid.UUID) ([]*registry.Screen, error) {
	db := r.db.DB.WithContext(ctx).Model(&models.ScreenModel{})
	if ownerID != nil {
		db = db.Where("owner_id = ?", *ownerID)
	}

	var dbModels []models.ScreenModel
	if err := db.Order("created_at DESC").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list screens: %w", err)
	}

	screens := make([]*registry.Screen, len(dbModels))
	for i := range dbModels {
		screens[i] = toScreenEntity(&dbModels[i])
	}

	return screens, nil
}

func (r *RegistryRepository) ScreensByOwner(ctx context.Context, ownerID uuid.UUID) ([]*registry.Screen, error) {
	return r.ListScreens(ctx, &ownerID)
}

func (r *RegistryRepository) MarkStale(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error) {
	if dryRun {
		var total int64
		for _, model := range []interface{}{&models.ControllerModel{}, &models.ScreenModel{}} {
			var count int64
			err := r.db.DB.WithContext(ctx).
				Model(model).
				Where("online = ? AND last_seen_at < ?", true, cutoff).
				Count(&count).Error
			if err != nil {
				return total, fmt.Errorf("failed to count stale records: %w", err)
			}
			total += count
		}
		return total, nil
	}

	var total int64
	for _, model := range []interface{}{&models.ControllerModel{}, &models.ScreenModel{}} {
		result := r.db.DB.WithContext(ctx).
			Model(model).
			Where("online = ? AND last_seen_at < ?", true, cutoff).
			Update("online", false)
		if result.Error != nil {
			return total, fmt.Errorf("failed to mark stale records offline: %w", result.Error)
		}
		total += result.RowsAffected
	}

	return total, nil
}

// Helper functions to convert between domain entities and database models

func applyLocationToController(m *models.ControllerModel, loc *registry.Location) {
	if loc == nil {
		return
	}
	if loc.Latitude != nil {
		m.Latitude = loc.Latitude
	}
	if loc.Longitude != nil {
		m.Longitude = loc.Longitude
	}
}

func toControllerEntity(m *models.ControllerModel) *registry.Controller {
	return &registry.Controller{
		ID:                 m.ID,
		SerialNumber:       m.SerialNumber,
		RegistrationSecret: m.RegistrationSecret,
		Latitude:           m.Latitude,
		Longitude:          m.Longitude,
		Online:             m.Online,
		LastSeenAt:         m.LastSeenAt,
		CreatedAt:          m.CreatedAt,
	}
}

func toScreenEntity(m *models.ScreenModel) *registry.Screen {
	return &registry.Screen{
		ID:           m.ID,
		SerialNumber: m.SerialNumber,
		OwnerID:      m.OwnerID,
		DisplayName:  m.DisplayName,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		Online:       m.Online,
		LastSeenAt:   m.LastSeenAt,
		CreatedAt:    m.CreatedAt,
	}
}
