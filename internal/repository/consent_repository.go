package repository

import (
	"context"
	"errors"

	"geo-attendance/internal/consent"
	"geo-attendance/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConsentRepository is the consent persistence service behind consent.Gate.
type ConsentRepository struct {
	db *gorm.DB
}

func NewConsentRepository(db *gorm.DB) *ConsentRepository {
	return &ConsentRepository{db}
}

func (r *ConsentRepository) FindConsent(ctx context.Context, employeeID uint) (consent.Record, error) {
	var row model.ConsentRecord
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return consent.Record{}, consent.ErrNotFound
	}
	if err != nil {
		return consent.Record{}, err
	}
	return toConsent(row), nil
}

// SaveConsent upserts on employee_id.
func (r *ConsentRepository) SaveConsent(ctx context.Context, rec consent.Record) error {
	row := fromConsent(rec)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"clock_tracking_granted",
			"random_checks_granted",
			"continuous_tracking_granted",
			"granted_at",
			"updated_at",
		}),
	}).Create(&row).Error
}

func toConsent(row model.ConsentRecord) consent.Record {
	return consent.Record{
		SubjectID:                 row.EmployeeID,
		ClockTrackingGranted:      row.ClockTrackingGranted,
		RandomChecksGranted:       row.RandomChecksGranted,
		ContinuousTrackingGranted: row.ContinuousTrackingGranted,
		GrantedAt:                 row.GrantedAt,
	}
}

func fromConsent(rec consent.Record) model.ConsentRecord {
	return model.ConsentRecord{
		EmployeeID:                rec.SubjectID,
		ClockTrackingGranted:      rec.ClockTrackingGranted,
		RandomChecksGranted:       rec.RandomChecksGranted,
		ContinuousTrackingGranted: rec.ContinuousTrackingGranted,
		GrantedAt:                 rec.GrantedAt,
	}
}
