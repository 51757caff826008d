package geofence

import (
	"fmt"

	"geo-attendance/internal/attendance"
)

// Zone is a circular area assigned to a subject together with its policy.
type Zone struct {
	ID                   uint    `json:"id"`
	Name                 string  `json:"name"`
	CenterLatitude       float64 `json:"center_latitude"`
	CenterLongitude      float64 `json:"center_longitude"`
	RadiusMeters         float64 `json:"radius_meters"`
	RequireForClockIn    bool    `json:"require_for_clock_in"`
	RequireForClockOut   bool    `json:"require_for_clock_out"`
	AllowOverrideOutside bool    `json:"allow_override_outside"`
}

func (z Zone) Validate() error {
	if z.CenterLatitude < -90 || z.CenterLatitude > 90 || z.CenterLongitude < -180 || z.CenterLongitude > 180 {
		return fmt.Errorf("zone %d: center (%f,%f) out of range", z.ID, z.CenterLatitude, z.CenterLongitude)
	}
	if z.RadiusMeters < 0 {
		return fmt.Errorf("zone %d: negative radius %f", z.ID, z.RadiusMeters)
	}
	return nil
}

// Requires reports whether the zone gates action.
func (z Zone) Requires(action attendance.Action) bool {
	switch action {
	case attendance.ClockIn:
		return z.RequireForClockIn
	case attendance.ClockOut:
		return z.RequireForClockOut
	}
	return false
}

// Blocks reports whether the zone forbids action for a subject that is not
// known to be inside it.
func (z Zone) Blocks(action attendance.Action) bool {
	return z.Requires(action) && !z.AllowOverrideOutside
}

func (z Zone) Ref() attendance.ZoneRef {
	return attendance.ZoneRef{ID: z.ID, Name: z.Name}
}
