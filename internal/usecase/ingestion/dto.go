package ingestion

import (
	"lxcloud/internal/domain/registry"

	"github.com/google/uuid"
)

// Outcome classifies what happened to a device update.
type Outcome string

const (
	// OutcomeStored: the serial resolved to a claimed screen; liveness
	// was updated and a non-empty payload was persisted.
	OutcomeStored Outcome = "stored"
	// OutcomeAcknowledged: the serial resolved to an unclaimed
	// controller; liveness was updated and any payload was discarded.
	OutcomeAcknowledged Outcome = "acknowledged"
	// OutcomeRegistered: the serial was unknown and a fresh controller
	// was created; any payload was discarded.
	OutcomeRegistered Outcome = "registered"
)

type RegisterRequest struct {
	SerialNumber string   `json:"serial_number" validate:"required,min=1,max=255"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	AuthKey      string   `json:"auth_key" validate:"omitempty,max=64"`
}

type RegisterResponse struct {
	SerialNumber    string `json:"serial_number"`
	RegistrationKey string `json:"registration_key"`
	Status          string `json:"status"`
}

type UpdateRequest struct {
	SerialNumber string   `json:"serial_number" validate:"required,min=1,max=255"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Information  string   `json:"information" validate:"omitempty,max=65536"`
	AuthKey      string   `json:"auth_key" validate:"omitempty,max=64"`
}

type UpdateResult struct {
	Outcome  Outcome
	ScreenID *uuid.UUID
	// Persisted is true only when a telemetry record was written.
	Persisted bool
}

func (r *UpdateRequest) location() *registry.Location {
	if r.Latitude == nil && r.Longitude == nil {
		return nil
	}
	return &registry.Location{Latitude: r.Latitude, Longitude: r.Longitude}
}

func (r *RegisterRequest) location() *registry.Location {
	if r.Latitude == nil && r.Longitude == nil {
		return nil
	}
	return &registry.Location{Latitude: r.Latitude, Longitude: r.Longitude}
}
