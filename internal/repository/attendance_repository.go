package repository

import (
	"context"
	"errors"
	"fmt"

	"geo-attendance/internal/attendance"
	"geo-attendance/internal/model"

	"gorm.io/gorm"
)

// AttendanceRepository is the authoritative attendance store.
type AttendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{db}
}

func (r *AttendanceRepository) CurrentSession(ctx context.Context, employeeID uint) (attendance.Session, error) {
	var row model.AttendanceSession
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return attendance.NewSession(employeeID), nil
	}
	if err != nil {
		return attendance.Session{}, err
	}
	return toSession(row)
}

// Record moves the session from the given state to next and appends the
// action row, in one transaction. When the stored state is no longer from,
// nothing is written and the error wraps attendance.ErrStateConflict.
func (r *AttendanceRepository) Record(ctx context.Context, from attendance.State, next attendance.Session, ev attendance.ClockEvent) (attendance.Session, error) {
	var stored model.AttendanceSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Update sesi hanya jika state tersimpan masih sama
		res := tx.Model(&model.AttendanceSession{}).
			Where("employee_id = ? AND state = ?", ev.SubjectID, string(from)).
			Updates(map[string]interface{}{
				"state":          string(next.State),
				"clock_in_at":    next.ClockInAt,
				"break_start_at": next.BreakStartAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := createSession(tx, from, next, ev.SubjectID); err != nil {
				return err
			}
		}

		// 2. Simpan riwayat aksi
		rec := toRecord(ev, next.State)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return tx.Where("employee_id = ?", ev.SubjectID).First(&stored).Error
	})
	if err != nil {
		return attendance.Session{}, err
	}
	return toSession(stored)
}

// createSession inserts the first session row of an employee. Only a
// clocked-out employee may have no row yet.
func createSession(tx *gorm.DB, from attendance.State, next attendance.Session, employeeID uint) error {
	conflict := fmt.Errorf("%w: employee %d is no longer %s", attendance.ErrStateConflict, employeeID, from)
	if from != attendance.ClockedOut {
		return conflict
	}

	var n int64
	if err := tx.Model(&model.AttendanceSession{}).Where("employee_id = ?", employeeID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict
	}

	row := model.AttendanceSession{
		EmployeeID:   employeeID,
		State:        string(next.State),
		ClockInAt:    next.ClockInAt,
		BreakStartAt: next.BreakStartAt,
	}
	err := tx.Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict
	}
	return err
}

// History returns the latest committed actions of an employee, newest first.
func (r *AttendanceRepository) History(ctx context.Context, employeeID uint, limit int) ([]model.AttendanceRecord, error) {
	var history []model.AttendanceRecord
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("at DESC").Limit(limit).Find(&history).Error
	return history, err
}

func toSession(row model.AttendanceSession) (attendance.Session, error) {
	state, err := attendance.ParseState(row.State)
	if err != nil {
		return attendance.Session{}, err
	}
	return attendance.Session{
		SubjectID:    row.EmployeeID,
		State:        state,
		ClockInAt:    row.ClockInAt,
		BreakStartAt: row.BreakStartAt,
	}, nil
}

func toRecord(ev attendance.ClockEvent, after attendance.State) model.AttendanceRecord {
	rec := model.AttendanceRecord{
		EventID:    ev.ID,
		EmployeeID: ev.SubjectID,
		Action:     string(ev.Action),
		At:         ev.At,
		Tanggal:    ev.At.Format("2006-01-02"),
		InsideZone: len(ev.ZonesInside) > 0,
		StateAfter: string(after),
	}
	if p := ev.Position; p != nil {
		lat, lon, acc := p.Latitude, p.Longitude, p.AccuracyMeters
		rec.Latitude, rec.Longitude, rec.AccuracyMeters = &lat, &lon, &acc
	}
	return rec
}
