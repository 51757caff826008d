package database

import (
	"fmt"
	"log"
	"os"

	"geo-attendance/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type Fixture struct {
	Organization string            `yaml:"organization"`
	Zones        []ZoneFixture     `yaml:"zones"`
	Employees    []EmployeeFixture `yaml:"employees"`
}

type ZoneFixture struct {
	Name                 string  `yaml:"name"`
	Address              string  `yaml:"address"`
	Latitude             float64 `yaml:"latitude"`
	Longitude            float64 `yaml:"longitude"`
	RadiusMeters         float64 `yaml:"radius_meters"`
	RequireForClockIn    bool    `yaml:"require_for_clock_in"`
	RequireForClockOut   bool    `yaml:"require_for_clock_out"`
	AllowOverrideOutside bool    `yaml:"allow_override_outside"`
}

type EmployeeFixture struct {
	Name     string   `yaml:"name"`
	NIP      string   `yaml:"nip"`
	Password string   `yaml:"password"`
	Email    string   `yaml:"email"`
	Role     string   `yaml:"role"`
	Zones    []string `yaml:"zones"`
}

// DefaultFixture is used when no fixture file is given.
func DefaultFixture() Fixture {
	return Fixture{
		Organization: "Dinas Komunikasi dan Informatika",
		Zones: []ZoneFixture{{
			Name:              "Kantor Pusat Diskominfo",
			Latitude:          -0.9416,
			Longitude:         100.3700,
			RadiusMeters:      50,
			RequireForClockIn: true,
		}},
		Employees: []EmployeeFixture{
			{Name: "Administrator Utama", NIP: "123456789123456789", Password: "admin123", Role: "Admin"},
			{Name: "Pegawai Contoh", NIP: "198701012010011001", Password: "pegawai123", Role: "Pegawai", Zones: []string{"Kantor Pusat Diskominfo"}},
		},
	}
}

func LoadFixture(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, f.Validate()
}

// Validate checks that every employee zone reference names a fixture zone.
func (f Fixture) Validate() error {
	if f.Organization == "" {
		return fmt.Errorf("fixture: organization is required")
	}
	names := map[string]bool{}
	for _, z := range f.Zones {
		if z.RadiusMeters < 0 {
			return fmt.Errorf("fixture: zone %q has negative radius", z.Name)
		}
		names[z.Name] = true
	}
	for _, e := range f.Employees {
		if e.NIP == "" || e.Password == "" {
			return fmt.Errorf("fixture: employee %q needs nip and password", e.Name)
		}
		for _, zn := range e.Zones {
			if !names[zn] {
				return fmt.Errorf("fixture: employee %s references unknown zone %q", e.NIP, zn)
			}
		}
	}
	return nil
}

func SeedAll(db *gorm.DB, f Fixture) error {
	return db.Transaction(func(tx *gorm.DB) error {
		// 1. Seed Organisasi
		org := model.Organization{Name: f.Organization}
		if err := tx.FirstOrCreate(&org, model.Organization{Name: org.Name}).Error; err != nil {
			return err
		}

		// 2. Seed Zona
		zones := map[string]model.GeofenceZone{}
		for _, zf := range f.Zones {
			zone := model.GeofenceZone{OrganizationID: org.ID, Name: zf.Name}
			if err := tx.Where(model.GeofenceZone{OrganizationID: org.ID, Name: zf.Name}).
				Assign(model.GeofenceZone{
					Address:              zf.Address,
					CenterLatitude:       zf.Latitude,
					CenterLongitude:      zf.Longitude,
					RadiusMeters:         zf.RadiusMeters,
					RequireForClockIn:    zf.RequireForClockIn,
					RequireForClockOut:   zf.RequireForClockOut,
					AllowOverrideOutside: zf.AllowOverrideOutside,
				}).FirstOrCreate(&zone).Error; err != nil {
				return err
			}
			zones[zf.Name] = zone
		}

		// 3. Seed Pegawai + penugasan zona
		for _, ef := range f.Employees {
			hashed, err := bcrypt.GenerateFromPassword([]byte(ef.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			role := ef.Role
			if role == "" {
				role = "Pegawai"
			}
			emp := model.Employee{NIP: ef.NIP}
			if err := tx.Where(model.Employee{NIP: ef.NIP}).
				Assign(model.Employee{
					OrganizationID: org.ID,
					Name:           ef.Name,
					Email:          ef.Email,
					Password:       string(hashed),
					Role:           role,
					IsActive:       true,
				}).FirstOrCreate(&emp).Error; err != nil {
				return err
			}

			assigned := make([]model.GeofenceZone, 0, len(ef.Zones))
			for _, zn := range ef.Zones {
				assigned = append(assigned, zones[zn])
			}
			if err := tx.Model(&emp).Association("Zones").Replace(assigned); err != nil {
				return err
			}
			log.Printf("Seeding pegawai %s (%s) berhasil", ef.NIP, role)
		}
		return nil
	})
}
