package models

import (
	"time"

	"github.com/google/uuid"
)

// ControllerModel is the database model for unclaimed controllers.
type ControllerModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key"`
	SerialNumber       string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	RegistrationSecret string     `gorm:"type:varchar(255);not null"`
	Latitude           *float64   `gorm:"type:double precision"`
	Longitude          *float64   `gorm:"type:double precision"`
	Online             bool       `gorm:"not null;default:false"`
	LastSeenAt         *time.Time `gorm:"type:timestamp"`
	CreatedAt          time.Time  `gorm:"not null"`
}

func (ControllerModel) TableName() string {
	return "controllers"
}
