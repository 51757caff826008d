package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceSession holds the current clock state, one row per employee.
type AttendanceSession struct {
	gorm.Model
	EmployeeID   uint       `json:"employee_id" gorm:"uniqueIndex;not null"`
	State        string     `json:"state" gorm:"size:16;not null"` // CLOCKED_OUT/CLOCKED_IN/ON_BREAK
	ClockInAt    *time.Time `json:"clock_in_at"`
	BreakStartAt *time.Time `json:"break_start_at"`
}

// AttendanceRecord is one committed clock action.
type AttendanceRecord struct {
	gorm.Model
	EventID    uuid.UUID `json:"event_id" gorm:"type:char(36);uniqueIndex"`
	EmployeeID uint      `json:"employee_id" gorm:"index"`
	Action     string    `json:"action" gorm:"size:16"` // CLOCK_IN/CLOCK_OUT/START_BREAK/END_BREAK
	At         time.Time `json:"at"`
	Tanggal    string    `json:"tanggal"` // 2006-01-02

	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracy_meters"`
	InsideZone     bool     `json:"inside_zone"`
	StateAfter     string   `json:"state_after" gorm:"size:16"`
}

// ClockEventEntry is an append-only audit row, one per zone the employee
// was inside (or a single row with no zone).
type ClockEventEntry struct {
	ID         uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	EventID    uuid.UUID `json:"event_id" gorm:"type:char(36);index"`
	EmployeeID uint      `json:"employee_id" gorm:"index"`
	Action     string    `json:"action" gorm:"size:16"`
	At         time.Time `json:"at"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	ZoneID     *uint     `json:"zone_id" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e *ClockEventEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
