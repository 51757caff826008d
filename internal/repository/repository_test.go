package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"geo-attendance/internal/attendance"
	"geo-attendance/internal/consent"
	"geo-attendance/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var at = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedEmployee(t *testing.T, db *gorm.DB, orgID uint, nip string) model.Employee {
	t.Helper()
	emp := model.Employee{OrganizationID: orgID, Name: "Pegawai " + nip, NIP: nip, Password: "x"}
	if err := db.Create(&emp).Error; err != nil {
		t.Fatalf("create employee %s: %v", nip, err)
	}
	return emp
}

func clockEvent(employeeID uint, action attendance.Action) attendance.ClockEvent {
	return attendance.ClockEvent{ID: uuid.New(), SubjectID: employeeID, Action: action, At: at}
}

func countRecords(t *testing.T, db *gorm.DB, employeeID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.AttendanceRecord{}).Where("employee_id = ?", employeeID).Count(&n).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	return n
}

func TestRecordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()

	s, err := repo.CurrentSession(ctx, 7)
	if err != nil || s.State != attendance.ClockedOut {
		t.Fatalf("fresh employee must be clocked out: %+v %v", s, err)
	}

	in := attendance.Session{SubjectID: 7, State: attendance.ClockedIn, ClockInAt: &at}
	stored, err := repo.Record(ctx, attendance.ClockedOut, in, clockEvent(7, attendance.ClockIn))
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if stored.State != attendance.ClockedIn || stored.ClockInAt == nil || !stored.ClockInAt.Equal(at) {
		t.Fatalf("unexpected stored session %+v", stored)
	}

	out := attendance.Session{SubjectID: 7, State: attendance.ClockedOut}
	if _, err := repo.Record(ctx, attendance.ClockedIn, out, clockEvent(7, attendance.ClockOut)); err != nil {
		t.Fatalf("clock out: %v", err)
	}
	// the row now exists in the clocked-out state
	if _, err := repo.Record(ctx, attendance.ClockedOut, in, clockEvent(7, attendance.ClockIn)); err != nil {
		t.Fatalf("second clock in: %v", err)
	}

	s, err = repo.CurrentSession(ctx, 7)
	if err != nil || s.State != attendance.ClockedIn {
		t.Fatalf("reload: %+v %v", s, err)
	}
	history, err := repo.History(ctx, 7, 10)
	if err != nil || len(history) != 3 {
		t.Fatalf("history: %d rows, %v", len(history), err)
	}
}

func TestRecordRejectsStaleFromState(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()

	in := attendance.Session{SubjectID: 3, State: attendance.ClockedIn, ClockInAt: &at}
	if _, err := repo.Record(ctx, attendance.ClockedOut, in, clockEvent(3, attendance.ClockIn)); err != nil {
		t.Fatalf("first clock in: %v", err)
	}

	// a second replica still believes the employee is clocked out
	_, err := repo.Record(ctx, attendance.ClockedOut, in, clockEvent(3, attendance.ClockIn))
	if !errors.Is(err, attendance.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if n := countRecords(t, db, 3); n != 1 {
		t.Fatalf("conflicting action must not be recorded, got %d rows", n)
	}

	brk := attendance.Session{SubjectID: 3, State: attendance.OnBreak, ClockInAt: &at, BreakStartAt: &at}
	if _, err := repo.Record(ctx, attendance.OnBreak, brk, clockEvent(3, attendance.StartBreak)); !errors.Is(err, attendance.ErrStateConflict) {
		t.Fatalf("wrong from state must conflict, got %v", err)
	}
	s, err := repo.CurrentSession(ctx, 3)
	if err != nil || s.State != attendance.ClockedIn {
		t.Fatalf("stored session must be untouched: %+v %v", s, err)
	}
}

func TestRecordWithoutRowNeedsClockedOut(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)

	out := attendance.Session{SubjectID: 9, State: attendance.ClockedOut}
	_, err := repo.Record(context.Background(), attendance.ClockedIn, out, clockEvent(9, attendance.ClockOut))
	if !errors.Is(err, attendance.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if n := countRecords(t, db, 9); n != 0 {
		t.Fatalf("nothing may be recorded, got %d rows", n)
	}
}

func TestConsentUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewConsentRepository(db)
	ctx := context.Background()

	if _, err := repo.FindConsent(ctx, 2); !errors.Is(err, consent.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := repo.SaveConsent(ctx, consent.Record{SubjectID: 2, ClockTrackingGranted: true, GrantedAt: &at}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveConsent(ctx, consent.Record{SubjectID: 2, ClockTrackingGranted: false, RandomChecksGranted: true}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	rec, err := repo.FindConsent(ctx, 2)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.ClockTrackingGranted || !rec.RandomChecksGranted || rec.GrantedAt != nil {
		t.Fatalf("second save must replace the first: %+v", rec)
	}
	var n int64
	db.Model(&model.ConsentRecord{}).Where("employee_id = ?", 2).Count(&n)
	if n != 1 {
		t.Fatalf("expected one consent row, got %d", n)
	}
}

func TestZonesForSubject(t *testing.T) {
	db := newTestDB(t)
	repo := NewZoneRepository(db)
	ctx := context.Background()

	org := model.Organization{Name: "Kantor"}
	db.Create(&org)
	b := model.GeofenceZone{OrganizationID: org.ID, Name: "B", RadiusMeters: 50}
	a := model.GeofenceZone{OrganizationID: org.ID, Name: "A", RadiusMeters: 100, RequireForClockIn: true}
	db.Create(&a)
	db.Create(&b)

	emp := seedEmployee(t, db, org.ID, "100")
	if err := repo.Assign(ctx, b.ID, []uint{emp.ID}); err != nil {
		t.Fatalf("assign b: %v", err)
	}
	if err := repo.Assign(ctx, a.ID, []uint{emp.ID}); err != nil {
		t.Fatalf("assign a: %v", err)
	}

	zones, err := repo.ZonesForSubject(ctx, emp.ID)
	if err != nil {
		t.Fatalf("zones: %v", err)
	}
	if len(zones) != 2 || zones[0].ID != a.ID || !zones[0].RequireForClockIn || zones[1].ID != b.ID {
		t.Fatalf("unexpected zones %+v", zones)
	}

	// is_active has a column default, so it is switched off after insert
	if err := db.Model(&emp).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := repo.ZonesForSubject(ctx, emp.ID); !errors.Is(err, ErrEmployeeInactive) {
		t.Fatalf("expected inactive employee, got %v", err)
	}
}

func TestAssignStaysInsideOrganization(t *testing.T) {
	db := newTestDB(t)
	repo := NewZoneRepository(db)
	ctx := context.Background()

	home, other := model.Organization{Name: "Kantor"}, model.Organization{Name: "Lain"}
	db.Create(&home)
	db.Create(&other)
	zone := model.GeofenceZone{OrganizationID: home.ID, Name: "Pusat", RadiusMeters: 80}
	db.Create(&zone)

	own := seedEmployee(t, db, home.ID, "200")
	foreign := seedEmployee(t, db, other.ID, "300")

	err := repo.Assign(ctx, zone.ID, []uint{own.ID, foreign.ID})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign employee must be refused, got %v", err)
	}
	if n := db.Model(&zone).Association("Employees").Count(); n != 0 {
		t.Fatalf("refused assignment must link nobody, got %d", n)
	}

	if err := repo.Assign(ctx, zone.ID, []uint{own.ID, own.ID}); err != nil {
		t.Fatalf("repeated id must count once: %v", err)
	}
	if n := db.Model(&zone).Association("Employees").Count(); n != 1 {
		t.Fatalf("expected one assignment, got %d", n)
	}

	if err := repo.Assign(ctx, 999, []uint{own.ID}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown zone must be not found, got %v", err)
	}
}
