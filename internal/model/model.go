package model

// All lists every model for auto migration.
func All() []interface{} {
	return []interface{}{
		&Organization{},
		&GeofenceZone{},
		&Employee{},
		&ConsentRecord{},
		&AttendanceSession{},
		&AttendanceRecord{},
		&ClockEventEntry{},
	}
}
