package screen

import (
	"time"

	"lxcloud/internal/domain/telemetry"

	"github.com/google/uuid"
)

type DataRecordResponse struct {
	ID         uuid.UUID `json:"id"`
	ScreenID   uuid.UUID `json:"screen_id"`
	Payload    string    `json:"payload"`
	CapturedAt time.Time `json:"captured_at"`
}

func ToDataRecordResponse(r *telemetry.Record) *DataRecordResponse {
	if r == nil {
		return nil
	}
	return &DataRecordResponse{
		ID:         r.ID,
		ScreenID:   r.ScreenID,
		Payload:    r.Payload,
		CapturedAt: r.CapturedAt,
	}
}
