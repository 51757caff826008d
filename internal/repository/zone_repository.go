package repository

import (
	"context"
	"errors"
	"fmt"

	"geo-attendance/internal/geofence"
	"geo-attendance/internal/model"

	"gorm.io/gorm"
)

var ErrEmployeeInactive = errors.New("employee not found or inactive")

// ZoneRepository is the zone directory. Only the admin routes write zones.
type ZoneRepository interface {
	ZonesForSubject(ctx context.Context, employeeID uint) ([]geofence.Zone, error)
	ListByOrganization(ctx context.Context, orgID uint) ([]model.GeofenceZone, error)
	FindByID(ctx context.Context, id uint) (*model.GeofenceZone, error)
	Create(ctx context.Context, zone *model.GeofenceZone) error
	Update(ctx context.Context, zone *model.GeofenceZone) error
	Delete(ctx context.Context, id uint) error
	Assign(ctx context.Context, zoneID uint, employeeIDs []uint) error
	Unassign(ctx context.Context, zoneID uint, employeeIDs []uint) error
}

type zoneRepository struct {
	db *gorm.DB
}

func NewZoneRepository(db *gorm.DB) ZoneRepository {
	return &zoneRepository{db}
}

func (r *zoneRepository) ZonesForSubject(ctx context.Context, employeeID uint) ([]geofence.Zone, error) {
	var emp model.Employee
	err := r.db.WithContext(ctx).
		Preload("Zones", func(db *gorm.DB) *gorm.DB { return db.Order("geofence_zones.id") }).
		Where("is_active = ?", true).
		First(&emp, employeeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("employee %d: %w", employeeID, ErrEmployeeInactive)
	}
	if err != nil {
		return nil, err
	}

	zones := make([]geofence.Zone, 0, len(emp.Zones))
	for _, z := range emp.Zones {
		zones = append(zones, ToZone(z))
	}
	return zones, nil
}

// ToZone maps a stored zone onto the evaluator's zone.
func ToZone(z model.GeofenceZone) geofence.Zone {
	return geofence.Zone{
		ID:                   z.ID,
		Name:                 z.Name,
		CenterLatitude:       z.CenterLatitude,
		CenterLongitude:      z.CenterLongitude,
		RadiusMeters:         z.RadiusMeters,
		RequireForClockIn:    z.RequireForClockIn,
		RequireForClockOut:   z.RequireForClockOut,
		AllowOverrideOutside: z.AllowOverrideOutside,
	}
}

func (r *zoneRepository) ListByOrganization(ctx context.Context, orgID uint) ([]model.GeofenceZone, error) {
	var zones []model.GeofenceZone
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("id").Find(&zones).Error
	return zones, err
}

func (r *zoneRepository) FindByID(ctx context.Context, id uint) (*model.GeofenceZone, error) {
	var zone model.GeofenceZone
	err := r.db.WithContext(ctx).First(&zone, id).Error
	return &zone, err
}

func (r *zoneRepository) Create(ctx context.Context, zone *model.GeofenceZone) error {
	return r.db.WithContext(ctx).Create(zone).Error
}

func (r *zoneRepository) Update(ctx context.Context, zone *model.GeofenceZone) error {
	return r.db.WithContext(ctx).Save(zone).Error
}

func (r *zoneRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		zone := model.GeofenceZone{Model: gorm.Model{ID: id}}
		if err := tx.Model(&zone).Association("Employees").Clear(); err != nil {
			return err
		}
		return tx.Delete(&zone).Error
	})
}

// Assign links employees of the zone's own organization to the zone.
// Repeated ids count once; an id outside the organization fails the whole
// call with gorm.ErrRecordNotFound.
func (r *zoneRepository) Assign(ctx context.Context, zoneID uint, employeeIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var zone model.GeofenceZone
		if err := tx.First(&zone, zoneID).Error; err != nil {
			return err
		}

		ids := make([]uint, 0, len(employeeIDs))
		seen := make(map[uint]bool, len(employeeIDs))
		for _, id := range employeeIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		var employees []model.Employee
		if err := tx.Where("id IN ? AND organization_id = ?", ids, zone.OrganizationID).Find(&employees).Error; err != nil {
			return err
		}
		if len(employees) != len(ids) {
			return fmt.Errorf("assign zone %d: %w", zoneID, gorm.ErrRecordNotFound)
		}
		return tx.Model(&zone).Association("Employees").Append(&employees)
	})
}

func (r *zoneRepository) Unassign(ctx context.Context, zoneID uint, employeeIDs []uint) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	var employees []model.Employee
	for _, id := range employeeIDs {
		employees = append(employees, model.Employee{Model: gorm.Model{ID: id}})
	}
	zone := model.GeofenceZone{Model: gorm.Model{ID: zoneID}}
	return r.db.WithContext(ctx).Model(&zone).Association("Employees").Delete(&employees)
}
