package registry

import (
	"time"

	"github.com/google/uuid"
)

// Controller is an unclaimed device record. It exists from a device's
// first contact until an operator claims the serial number as a screen.
type Controller struct {
	ID                 uuid.UUID
	SerialNumber       string
	RegistrationSecret string
	Latitude           *float64
	Longitude          *float64
	Online             bool
	LastSeenAt         *time.Time
	CreatedAt          time.Time
}

// Screen is a claimed device record owned by an operator. Only screens
// accumulate telemetry.
type Screen struct {
	ID           uuid.UUID
	SerialNumber string
	OwnerID      uuid.UUID
	DisplayName  string
	Latitude     *float64
	Longitude    *float64
	Online       bool
	LastSeenAt   *time.Time
	CreatedAt    time.Time
}

// Location is the optional position a device reports on each contact.
type Location struct {
	Latitude  *float64
	Longitude *float64
}

// State names the lifecycle state of a serial number. A serial is
// represented by at most one of controller or screen at any instant.
type State int

const (
	StateUnknown State = iota
	StateController
	StateScreen
)

func (s State) String() string {
	switch s {
	case StateController:
		return "controller"
	case StateScreen:
		return "screen"
	default:
		return "unknown"
	}
}

// Classification is the result of a single consistent lookup of a serial
// number. Exactly one of Controller/Screen is set for the matching state.
type Classification struct {
	State      State
	Controller *Controller
	Screen     *Screen
}
