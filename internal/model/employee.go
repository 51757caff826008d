package model

import "gorm.io/gorm"

type Employee struct {
	gorm.Model
	OrganizationID uint   `json:"organization_id"`
	Name           string `json:"name"`
	NIP            string `json:"nip" gorm:"column:nip;unique;not null"`
	Password       string `json:"-"`
	Email          string `json:"email"`
	Role           string `json:"role" gorm:"default:Pegawai"`
	IsActive       bool   `json:"is_active" gorm:"default:true"`

	// Relasi
	Organization Organization   `json:"-" gorm:"foreignKey:OrganizationID"`
	Zones        []GeofenceZone `json:"zones,omitempty" gorm:"many2many:employee_zones;"`
}
