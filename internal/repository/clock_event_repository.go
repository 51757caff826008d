package repository

import (
	"context"

	"geo-attendance/internal/audit"
	"geo-attendance/internal/model"

	"gorm.io/gorm"
)

// ClockEventRepository is the audit sink. Rows are only ever inserted.
type ClockEventRepository struct {
	db *gorm.DB
}

func NewClockEventRepository(db *gorm.DB) *ClockEventRepository {
	return &ClockEventRepository{db}
}

func (r *ClockEventRepository) Ingest(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]model.ClockEventEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, toEntryRow(e))
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListByZone is the compliance review query, newest first.
func (r *ClockEventRepository) ListByZone(ctx context.Context, zoneID uint, limit int) ([]model.ClockEventEntry, error) {
	var rows []model.ClockEventEntry
	err := r.db.WithContext(ctx).Where("zone_id = ?", zoneID).Order("at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func toEntryRow(e audit.Entry) model.ClockEventEntry {
	row := model.ClockEventEntry{
		ID:         e.ID,
		EventID:    e.EventID,
		EmployeeID: e.SubjectID,
		Action:     string(e.Action),
		At:         e.At,
		ZoneID:     e.ZoneID,
	}
	if p := e.Position; p != nil {
		lat, lon, acc := p.Latitude, p.Longitude, p.AccuracyMeters
		row.Latitude, row.Longitude, row.Accuracy = &lat, &lon, &acc
	}
	return row
}
