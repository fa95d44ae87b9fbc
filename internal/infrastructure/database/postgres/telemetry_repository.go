package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lxcloud/internal/domain/telemetry"
	"lxcloud/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TelemetryRepository implements telemetry.Repository on postgres.
type TelemetryRepository struct {
	db *DB
}

func NewTelemetryRepository(db *DB) telemetry.Repository {
	return &TelemetryRepository{db: db}
}

func (r *TelemetryRepository) Append(ctx context.Context, screenID uuid.UUID, payload string, capturedAt time.Time) (*telemetry.Record, error) {
	if payload == "" {
		return nil, telemetry.ErrEmptyPayload
	}

	dbModel := models.TelemetryModel{
		ID:            uuid.New(),
		ScreenID:      screenID,
		Payload:       payload,
		CapturedAt:    capturedAt,
		PartitionYear: capturedAt.Year(),
	}

	if err := r.db.DB.WithContext(ctx).Create(&dbModel).Error; err != nil {
		// The screen row was deleted between classification and the
		// write; the foreign key keeps the record from landing.
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, telemetry.ErrScreenGone
		}
		return nil, fmt.Errorf("failed to append telemetry: %w", err)
	}

	return toTelemetryEntity(&dbModel), nil
}

func (r *TelemetryRepository) QueryRecent(ctx context.Context, screenID uuid.UUID, year, limit int) ([]*telemetry.Record, error) {
	var dbModels []models.TelemetryModel
	err := r.db.DB.WithContext(ctx).
		Where("screen_id = ? AND partition_year = ?", screenID, year).
		Order("captured_at DESC").
		Limit(limit).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}

	records := make([]*telemetry.Record, len(dbModels))
	for i := range dbModels {
		records[i] = toTelemetryEntity(&dbModels[i])
	}

	return records, nil
}

func (r *TelemetryRepository) DeleteOlderThan(ctx context.Context, cutoffYear int) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("partition_year < ?", cutoffYear).
		Delete(&models.TelemetryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old telemetry: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *TelemetryRepository) CountOlderThan(ctx context.Context, cutoffYear int) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.TelemetryModel{}).
		Where("partition_year < ?", cutoffYear).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count old telemetry: %w", err)
	}

	return count, nil
}

func toTelemetryEntity(m *models.TelemetryModel) *telemetry.Record {
	return &telemetry.Record{
		ID:            m.ID,
		ScreenID:      m.ScreenID,
		Payload:       m.Payload,
		CapturedAt:    m.CapturedAt,
		PartitionYear: m.PartitionYear,
	}
}
