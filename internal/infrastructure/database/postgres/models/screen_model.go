package models

import (
	"time"

	"github.com/google/uuid"
)

// ScreenModel is the database model for claimed screens.
type ScreenModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key"`
	SerialNumber string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	DisplayName  string     `gorm:"type:varchar(255)"`
	Latitude     *float64   `gorm:"type:double precision"`
	Longitude    *float64   `gorm:"type:double precision"`
	Online       bool       `gorm:"not null;default:false"`
	LastSeenAt   *time.Time `gorm:"type:timestamp"`
	CreatedAt    time.Time  `gorm:"not null"`
}

func (ScreenModel) TableName() string {
	return "screens"
}
