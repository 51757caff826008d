package attendance

import (
	"time"

	"geo-attendance/internal/location"

	"github.com/google/uuid"
)

// ClockEvent is the immutable outcome of one committed transition.
type ClockEvent struct {
	ID          uuid.UUID          `json:"id"`
	SubjectID   uint               `json:"subject_id"`
	Action      Action             `json:"action"`
	At          time.Time          `json:"at"`
	Position    *location.Position `json:"position"`
	ZonesInside []uint             `json:"zones_inside"`
	Session     Session            `json:"session"`
}
