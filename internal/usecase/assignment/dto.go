package assignment

import (
	"time"

	"lxcloud/internal/domain/registry"

	"github.com/google/uuid"
)

type ClaimRequest struct {
	SerialNumber string `json:"serial_number" validate:"required,min=1,max=255"`
	DisplayName  string `json:"display_name" validate:"omitempty,max=255"`
}

type RenameRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=255"`
}

type ScreenResponse struct {
	ID           uuid.UUID  `json:"id"`
	SerialNumber string     `json:"serial_number"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	DisplayName  string     `json:"display_name"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Online       bool       `json:"online"`
	LastSeenAt   *time.Time `json:"last_seen_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ControllerResponse struct {
	ID              uuid.UUID  `json:"id"`
	SerialNumber    string     `json:"serial_number"`
	RegistrationKey string     `json:"registration_key"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	Online          bool       `json:"online"`
	LastSeenAt      *time.Time `json:"last_seen_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

func ToScreenResponse(s *registry.Screen) *ScreenResponse {
	if s == nil {
		return nil
	}
	return &ScreenResponse{
		ID:           s.ID,
		SerialNumber: s.SerialNumber,
		OwnerID:      s.OwnerID,
		DisplayName:  s.DisplayName,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		Online:       s.Online,
		LastSeenAt:   s.LastSeenAt,
		CreatedAt:    s.CreatedAt,
	}
}

func ToControllerResponse(c *registry.Controller) *ControllerResponse {
	if c == nil {
		return nil
	}
	return &ControllerResponse{
		ID:              c.ID,
		SerialNumber:    c.SerialNumber,
		RegistrationKey: c.RegistrationSecret,
		Latitude:        c.Latitude,
		Longitude:       c.Longitude,
		Online:          c.Online,
		LastSeenAt:      c.LastSeenAt,
		CreatedAt:       c.CreatedAt,
	}
}
