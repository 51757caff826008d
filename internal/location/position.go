package location

import (
	"fmt"
	"time"
)

// Position is a single device fix. It is never persisted beyond the action
// that acquired it.
type Position struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	CapturedAt     time.Time `json:"captured_at"`
}

func (p Position) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range", p.Longitude)
	}
	if p.AccuracyMeters < 0 {
		return fmt.Errorf("accuracy %f must not be negative", p.AccuracyMeters)
	}
	if p.CapturedAt.IsZero() {
		return fmt.Errorf("capture time is required")
	}
	return nil
}

// FreshAt reports whether the fix is young enough to be used at now.
// A fix from the future beyond a small skew is treated as stale too.
func (p Position) FreshAt(now time.Time, maxAge time.Duration) bool {
	age := now.Sub(p.CapturedAt)
	if age < -clockSkew {
		return false
	}
	return age <= maxAge
}

const clockSkew = 5 * time.Second
