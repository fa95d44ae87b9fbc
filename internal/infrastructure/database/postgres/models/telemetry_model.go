package models

import (
	"time"

	"github.com/google/uuid"
)

// TelemetryModel is the database model for screen telemetry records. The
// composite index serves the bounded recent-history query; the foreign
// key cascades so a deleted screen takes its telemetry with it.
type TelemetryModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	ScreenID      uuid.UUID `gorm:"type:uuid;not null;index:idx_telemetry_screen_year_time,priority:1"`
	Screen        *ScreenModel `gorm:"foreignKey:ScreenID;constraint:OnDelete:CASCADE"`
	Payload       string    `gorm:"type:text;not null"`
	CapturedAt    time.Time `gorm:"not null;index:idx_telemetry_screen_year_time,priority:3"`
	PartitionYear int       `gorm:"not null;index:idx_telemetry_screen_year_time,priority:2;index"`
}

func (TelemetryModel) TableName() string {
	return "screen_data"
}
