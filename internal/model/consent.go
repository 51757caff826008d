package model

import (
	"time"

	"gorm.io/gorm"
)

type ConsentRecord struct {
	gorm.Model
	EmployeeID                uint       `json:"employee_id" gorm:"uniqueIndex;not null"`
	ClockTrackingGranted      bool       `json:"clock_tracking_granted"`
	RandomChecksGranted       bool       `json:"random_checks_granted"`
	ContinuousTrackingGranted bool       `json:"continuous_tracking_granted"`
	GrantedAt                 *time.Time `json:"granted_at"`
}
