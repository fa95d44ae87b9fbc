package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// ScreenUpdate is the live-update event emitted after each successful
// ingest of a claimed screen. Delivery is best effort, at most once.
type ScreenUpdate struct {
	ScreenID     uuid.UUID `json:"screen_id"`
	SerialNumber string    `json:"serial_number"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	OnlineStatus bool      `json:"online_status"`
	Information  string    `json:"information"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher is anything that can fan a screen update out to viewers.
type Publisher interface {
	Publish(event ScreenUpdate)
}
