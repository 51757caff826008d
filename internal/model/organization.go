package model

import "gorm.io/gorm"

type Organization struct {
	gorm.Model
	Name      string         `json:"name" gorm:"not null"`
	Employees []Employee     `json:"employees,omitempty"`
	Zones     []GeofenceZone `json:"zones,omitempty"`
}

// GeofenceZone is a circular area an employee may be required to be in.
type GeofenceZone struct {
	gorm.Model
	OrganizationID       uint    `json:"organization_id" gorm:"index"`
	Name                 string  `json:"name" gorm:"not null"`
	Address              string  `json:"address"`
	CenterLatitude       float64 `json:"center_latitude"`
	CenterLongitude      float64 `json:"center_longitude"`
	RadiusMeters         float64 `json:"radius_meters"`
	RequireForClockIn    bool    `json:"require_for_clock_in"`
	RequireForClockOut   bool    `json:"require_for_clock_out"`
	AllowOverrideOutside bool    `json:"allow_override_outside"`

	Employees []Employee `json:"-" gorm:"many2many:employee_zones;"`
}
