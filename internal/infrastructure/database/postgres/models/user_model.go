package models

import (
	"time"

	"github.com/google/uuid"
)

// UserModel is the database model for operator accounts.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Username     string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	IsAdmin      bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}
