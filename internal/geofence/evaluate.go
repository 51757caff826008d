package geofence

import (
	"geo-attendance/internal/attendance"
	"geo-attendance/internal/location"
)

type Membership struct {
	Zone           Zone    `json:"zone"`
	DistanceMeters float64 `json:"distance_meters"`
	IsInside       bool    `json:"is_inside"`
}

// Decision is the aggregate policy result of one evaluation. It is computed
// fresh for every action and never cached.
type Decision struct {
	CanClockIn    bool         `json:"can_clock_in"`
	CanClockOut   bool         `json:"can_clock_out"`
	PositionKnown bool         `json:"position_known"`
	Memberships   []Membership `json:"memberships"`

	zones []Zone
}

// Evaluate computes per-zone containment for pos and the permission of both
// geofence-gated actions. A nil pos means the location is unknown.
//
// An action is denied when any zone requires it, disallows override and the
// subject is not inside it. Zones are independent of each other: being inside
// one required zone does not satisfy another.
func Evaluate(pos *location.Position, zones []Zone) Decision {
	d := Decision{PositionKnown: pos != nil, zones: zones}

	if len(zones) == 0 {
		d.CanClockIn, d.CanClockOut = true, true
		return d
	}

	if pos != nil {
		d.Memberships = make([]Membership, 0, len(zones))
		for _, z := range zones {
			dist := Distance(pos.Latitude, pos.Longitude, z.CenterLatitude, z.CenterLongitude)
			d.Memberships = append(d.Memberships, Membership{
				Zone:           z,
				DistanceMeters: dist,
				IsInside:       dist <= z.RadiusMeters,
			})
		}
	}

	d.CanClockIn = len(d.Violations(attendance.ClockIn)) == 0
	d.CanClockOut = len(d.Violations(attendance.ClockOut)) == 0
	return d
}

// Permits reports whether action may proceed under this decision. Actions
// that are not geofence gated are always permitted.
func (d Decision) Permits(action attendance.Action) bool {
	switch action {
	case attendance.ClockIn:
		return d.CanClockIn
	case attendance.ClockOut:
		return d.CanClockOut
	}
	return true
}

// Violations lists the zones that block action, in assignment order.
func (d Decision) Violations(action attendance.Action) []Zone {
	var out []Zone
	if !d.PositionKnown {
		for _, z := range d.zones {
			if z.Blocks(action) {
				out = append(out, z)
			}
		}
		return out
	}
	for _, m := range d.Memberships {
		if !m.IsInside && m.Zone.Blocks(action) {
			out = append(out, m.Zone)
		}
	}
	return out
}

// InsideZoneIDs returns the ids of every zone containing the position.
func (d Decision) InsideZoneIDs() []uint {
	ids := []uint{}
	for _, m := range d.Memberships {
		if m.IsInside {
			ids = append(ids, m.Zone.ID)
		}
	}
	return ids
}

// Nearest returns the membership with the smallest distance, if any.
func (d Decision) Nearest() (Membership, bool) {
	if len(d.Memberships) == 0 {
		return Membership{}, false
	}
	best := d.Memberships[0]
	for _, m := range d.Memberships[1:] {
		if m.DistanceMeters < best.DistanceMeters {
			best = m
		}
	}
	return best, true
}
