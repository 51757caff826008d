package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"geo-attendance/internal/attendance"
	"geo-attendance/internal/clock"
	"geo-attendance/internal/consent"
	"geo-attendance/internal/geofence"
	"geo-attendance/internal/location"
	"geo-attendance/internal/notify"
	"geo-attendance/internal/usecase"
)

var now = time.Date(2026, 3, 2, 7, 25, 0, 0, time.UTC)

type fakeConsent struct {
	records map[uint]consent.Record
	err     error
	calls   int
}

func (f *fakeConsent) Get(_ context.Context, subjectID uint) (consent.Record, bool, error) {
	f.calls++
	if f.err != nil {
		return consent.Record{}, false, f.err
	}
	rec, ok := f.records[subjectID]
	return rec, ok, nil
}

type fakeZones struct {
	zones []geofence.Zone
	err   error
}

func (f *fakeZones) ZonesForSubject(context.Context, uint) ([]geofence.Zone, error) {
	return f.zones, f.err
}

type fakeRecorder struct {
	mu        sync.Mutex
	sessions  map[uint]attendance.Session
	recordErr error
	loads     int
	records   int
}

func (f *fakeRecorder) CurrentSession(_ context.Context, subjectID uint) (attendance.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if s, ok := f.sessions[subjectID]; ok {
		return s, nil
	}
	return attendance.NewSession(subjectID), nil
}

func (f *fakeRecorder) Record(_ context.Context, from attendance.State, next attendance.Session, _ attendance.ClockEvent) (attendance.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records++
	if f.recordErr != nil {
		return attendance.Session{}, f.recordErr
	}
	cur, ok := f.sessions[next.SubjectID]
	if !ok {
		cur = attendance.NewSession(next.SubjectID)
	}
	if cur.State != from {
		return attendance.Session{}, fmt.Errorf("%w: stored %s, expected %s", attendance.ErrStateConflict, cur.State, from)
	}
	f.sessions[next.SubjectID] = next
	return next, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []attendance.ClockEvent
	err    error
}

func (f *fakeAudit) Append(_ context.Context, ev attendance.ClockEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeDevice struct {
	mu      sync.Mutex
	pos     location.Position
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func fix(lat, lon float64) *fakeDevice {
	return &fakeDevice{pos: location.Position{Latitude: lat, Longitude: lon, AccuracyMeters: 8, CapturedAt: now}}
}

func (f *fakeDevice) CurrentPosition(ctx context.Context) (location.Position, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return location.Position{}, ctx.Err()
		}
	}
	return f.pos, f.err
}

func (f *fakeDevice) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	got chan notify.Violation
}

func (f *fakeNotifier) NotifyViolation(_ context.Context, v notify.Violation) error {
	f.got <- v
	return nil
}

type harness struct {
	consent  *fakeConsent
	zones    *fakeZones
	recorder *fakeRecorder
	audit    *fakeAudit
	notifier *fakeNotifier
	uc       *usecase.ClockUsecase
}

func granted(id uint) consent.Record {
	return consent.Record{SubjectID: id, ClockTrackingGranted: true, GrantedAt: &now}
}

func declined(id uint) consent.Record {
	return consent.Record{SubjectID: id}
}

func newHarness(zones ...geofence.Zone) *harness {
	h := &harness{
		consent:  &fakeConsent{records: map[uint]consent.Record{}},
		zones:    &fakeZones{zones: zones},
		recorder: &fakeRecorder{sessions: map[uint]attendance.Session{}},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{got: make(chan notify.Violation, 4)},
	}
	h.uc = usecase.NewClockUsecase(usecase.ClockDeps{
		Consent:  h.consent,
		Locator:  location.NewProvider(clock.Fixed(now), 30*time.Second),
		Zones:    h.zones,
		Recorder: h.recorder,
		Audit:    h.audit,
		Notifier: h.notifier,
		Clock:    clock.Fixed(now),
	}, usecase.ClockConfig{
		LocationTimeout:   200 * time.Millisecond,
		ZoneLookupTimeout: time.Second,
		RecordTimeout:     time.Second,
	})
	return h
}

func hq() geofence.Zone {
	return geofence.Zone{ID: 1, Name: "HQ", RadiusMeters: 100, RequireForClockIn: true}
}

func perform(h *harness, subject uint, action attendance.Action, dev location.Device) (attendance.ClockEvent, error) {
	return h.uc.Perform(context.Background(), usecase.ClockRequest{SubjectID: subject, Action: action, Device: dev})
}

func kindOf(t *testing.T, err error) attendance.RejectionKind {
	t.Helper()
	rej, ok := attendance.AsRejection(err)
	if !ok {
		t.Fatalf("expected a rejection, got %v", err)
	}
	return rej.Kind
}

func TestNoZonesClockInSucceeds(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = granted(1)

	ev, err := perform(h, 1, attendance.ClockIn, fix(45, 45))
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if len(ev.ZonesInside) != 0 {
		t.Fatalf("expected no zones inside, got %v", ev.ZonesInside)
	}
	if ev.Session.State != attendance.ClockedIn || ev.At != now {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(h.audit.events) != 1 || h.audit.events[0].ID != ev.ID {
		t.Fatalf("expected one audit append for the event")
	}
}

func TestOutsideRequiredZoneIsViolation(t *testing.T) {
	t.Parallel()
	h := newHarness(hq())
	h.consent.records[1] = granted(1)

	_, err := perform(h, 1, attendance.ClockIn, fix(0.002, 0))
	if !errors.Is(err, attendance.ErrGeofenceViolation) {
		t.Fatalf("expected geofence violation, got %v", err)
	}
	rej, _ := attendance.AsRejection(err)
	if len(rej.Zones) != 1 || rej.Zones[0].ID != 1 || rej.Zones[0].Name != "HQ" {
		t.Fatalf("violation must name HQ, got %+v", rej.Zones)
	}
	if h.recorder.records != 0 || len(h.audit.events) != 0 {
		t.Fatalf("nothing may be recorded on violation")
	}
	select {
	case v := <-h.notifier.got:
		if v.SubjectID != 1 || len(v.Zones) != 1 {
			t.Fatalf("unexpected notice %+v", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a violation notice")
	}
}

func TestAtZoneCenterRecordsZone(t *testing.T) {
	t.Parallel()
	h := newHarness(hq())
	h.consent.records[1] = granted(1)

	ev, err := perform(h, 1, attendance.ClockIn, fix(0, 0))
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if len(ev.ZonesInside) != 1 || ev.ZonesInside[0] != 1 {
		t.Fatalf("expected zone 1 inside, got %v", ev.ZonesInside)
	}
	if ev.Position == nil || ev.Position.Latitude != 0 {
		t.Fatalf("event must carry the position")
	}
}

func TestClockOutOnBreakIsConflict(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = granted(1)
	h.recorder.sessions[1] = attendance.Session{SubjectID: 1, State: attendance.OnBreak, ClockInAt: &now, BreakStartAt: &now}

	_, err := perform(h, 1, attendance.ClockOut, fix(0, 0))
	if kindOf(t, err) != attendance.KindStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	s, ok := h.uc.Mirror(1)
	if !ok || s.State != attendance.OnBreak {
		t.Fatalf("state must remain on break, got %+v", s)
	}
	if h.recorder.records != 0 {
		t.Fatalf("no record call after a rejected guard")
	}
}

func TestRepeatedActionIsConflict(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = granted(1)
	if _, err := perform(h, 1, attendance.ClockIn, fix(0, 0)); err != nil {
		t.Fatalf("first clock in: %v", err)
	}
	if _, err := perform(h, 1, attendance.ClockIn, fix(0, 0)); !errors.Is(err, attendance.ErrStateConflict) {
		t.Fatalf("duplicate clock in must be a conflict, got %v", err)
	}
	if h.recorder.loads != 1 {
		t.Fatalf("session should be loaded once and mirrored, got %d loads", h.recorder.loads)
	}
}

func TestMissingConsentRequiresPrompt(t *testing.T) {
	t.Parallel()
	h := newHarness()
	dev := fix(0, 0)
	if _, err := perform(h, 1, attendance.ClockIn, dev); kindOf(t, err) != attendance.KindConsentRequired {
		t.Fatalf("expected consent required, got %v", err)
	}
	if dev.Calls() != 0 {
		t.Fatalf("location must not be read without consent")
	}
}

func TestDeclinedConsentWithoutZonesSkipsLocation(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = declined(1)
	dev := fix(0, 0)

	ev, err := perform(h, 1, attendance.ClockIn, dev)
	if err != nil {
		t.Fatalf("clock in after decline: %v", err)
	}
	if dev.Calls() != 0 {
		t.Fatalf("expected no location acquisition, got %d", dev.Calls())
	}
	if ev.Position != nil {
		t.Fatalf("event must not carry a position")
	}
}

func TestDeclinedConsentWithRequiredZone(t *testing.T) {
	t.Parallel()
	h := newHarness(hq())
	h.consent.records[1] = declined(1)

	_, err := perform(h, 1, attendance.ClockIn, fix(0, 0))
	if !errors.Is(err, attendance.ErrGeofenceViolation) || !errors.Is(err, attendance.ErrConsentDeclined) {
		t.Fatalf("expected violation caused by decline, got %v", err)
	}
}

func TestPromptAnswerGovernsCurrentAction(t *testing.T) {
	t.Parallel()
	h := newHarness(hq())
	answer := granted(1)
	dev := fix(0, 0)

	_, err := h.uc.Perform(context.Background(), usecase.ClockRequest{SubjectID: 1, Action: attendance.ClockIn, Device: dev, Consent: &answer})
	if err != nil {
		t.Fatalf("clock in with fresh answer: %v", err)
	}
	if h.consent.calls != 0 || dev.Calls() != 1 {
		t.Fatalf("answer must be used directly, consent reads=%d device calls=%d", h.consent.calls, dev.Calls())
	}
}

func TestDismissedPromptAbandonsAction(t *testing.T) {
	t.Parallel()
	h := newHarness()
	_, err := h.uc.Perform(context.Background(), usecase.ClockRequest{SubjectID: 1, Action: attendance.ClockIn, PromptDismissed: true})
	if kindOf(t, err) != attendance.KindConsentRequired {
		t.Fatalf("expected consent required, got %v", err)
	}
	if h.consent.calls != 0 || h.recorder.records != 0 {
		t.Fatalf("dismissed prompt must not continue")
	}
}

func TestRecordFailureRollsBack(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = granted(1)
	h.recorder.recordErr = errors.New("503 from attendance service")

	_, err := perform(h, 1, attendance.ClockIn, fix(0, 0))
	rej, ok := attendance.AsRejection(err)
	if !ok || rej.Kind != attendance.KindRemoteFailure || !rej.Retryable() {
		t.Fatalf("expected retryable remote failure, got %v", err)
	}
	s, _ := h.uc.Mirror(1)
	if s.State != attendance.ClockedOut {
		t.Fatalf("phantom clocked-in state after failed commit: %+v", s)
	}
	if len(h.audit.events) != 0 {
		t.Fatalf("audit must not be written before a successful commit")
	}

	h.recorder.recordErr = nil
	if _, err := perform(h, 1, attendance.ClockIn, fix(0, 0)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.recorder.loads != 2 {
		t.Fatalf("retry must reload the session from the service, got %d loads", h.recorder.loads)
	}
}

func TestConcurrentActionForSameSubjectRejected(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = granted(1)
	h.consent.records[2] = granted(2)

	slow := fix(0, 0)
	slow.started = make(chan struct{})
	slow.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := perform(h, 1, attendance.ClockIn, slow)
		done <- err
	}()
	<-slow.started

	if _, err := perform(h, 1, attendance.ClockIn, fix(0, 0)); !errors.Is(err, attendance.ErrActionInProgress) {
		t.Fatalf("expected action in progress, got %v", err)
	}
	close(slow.release)
	if err := <-done; err != nil {
		t.Fatalf("first action: %v", err)
	}
	if _, err := perform(h, 2, attendance.ClockIn, fix(0, 0)); err != nil {
		t.Fatalf("other subject: %v", err)
	}
}

func TestLocationTimeoutWithOverrideZone(t *testing.T) {
	t.Parallel()
	zone := hq()
	zone.AllowOverrideOutside = true
	h := newHarness(zone)
	h.consent.records[1] = granted(1)

	hang := fix(0, 0)
	hang.started = make(chan struct{})
	hang.release = make(chan struct{})

	ev, err := perform(h, 1, attendance.ClockIn, hang)
	if err != nil {
		t.Fatalf("override zone must allow clock in without location: %v", err)
	}
	if ev.Position != nil || len(ev.ZonesInside) != 0 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestLocationUnavailableWithStrictZone(t *testing.T) {
	t.Parallel()
	h := newHarness(hq())
	h.consent.records[1] = granted(1)
	dev := &fakeDevice{err: errors.New("permission revoked by OS")}

	_, err := perform(h, 1, attendance.ClockIn, dev)
	if !errors.Is(err, attendance.ErrGeofenceViolation) || !errors.Is(err, attendance.ErrLocationUnavailable) {
		t.Fatalf("expected violation caused by missing location, got %v", err)
	}
}

func TestBreaksAreNotGeofenced(t *testing.T) {
	t.Parallel()
	zone := hq()
	zone.RequireForClockOut = true
	h := newHarness(zone)
	h.consent.records[1] = declined(1)
	h.recorder.sessions[1] = attendance.Session{SubjectID: 1, State: attendance.ClockedIn, ClockInAt: &now}

	if _, err := perform(h, 1, attendance.StartBreak, nil); err != nil {
		t.Fatalf("start break: %v", err)
	}
	if _, err := perform(h, 1, attendance.EndBreak, nil); err != nil {
		t.Fatalf("end break: %v", err)
	}
	if _, err := perform(h, 1, attendance.ClockOut, nil); !errors.Is(err, attendance.ErrGeofenceViolation) {
		t.Fatalf("clock out is still gated, got %v", err)
	}
}

func TestRemoteFailures(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.err = errors.New("consent service down")
	if _, err := perform(h, 1, attendance.ClockIn, nil); kindOf(t, err) != attendance.KindRemoteFailure {
		t.Fatalf("consent read failure must be remote failure, got %v", err)
	}

	h = newHarness()
	h.consent.records[1] = declined(1)
	h.zones.err = errors.New("zone directory timeout")
	if _, err := perform(h, 1, attendance.ClockIn, nil); kindOf(t, err) != attendance.KindRemoteFailure {
		t.Fatalf("zone lookup failure must be remote failure, got %v", err)
	}
}

func TestMalformedZoneIsFault(t *testing.T) {
	t.Parallel()
	h := newHarness(geofence.Zone{ID: 9, RadiusMeters: -5})
	h.consent.records[1] = declined(1)
	_, err := perform(h, 1, attendance.ClockIn, nil)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := attendance.AsRejection(err); ok {
		t.Fatalf("malformed data must not be a rejection: %v", err)
	}
}

func TestAuditFailureDoesNotUndoCommit(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = granted(1)
	h.audit.err = errors.New("audit sink down")

	ev, err := perform(h, 1, attendance.ClockIn, fix(0, 0))
	if err != nil {
		t.Fatalf("committed action must succeed: %v", err)
	}
	if ev.Session.State != attendance.ClockedIn {
		t.Fatalf("expected clocked in, got %s", ev.Session.State)
	}
}

func TestStatusReconcilesWithService(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.recorder.sessions[3] = attendance.Session{SubjectID: 3, State: attendance.ClockedIn, ClockInAt: &now}

	s, err := h.uc.Status(context.Background(), 3)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if s.State != attendance.ClockedIn {
		t.Fatalf("expected service state, got %s", s.State)
	}
	if m, ok := h.uc.Mirror(3); !ok || m.State != attendance.ClockedIn {
		t.Fatalf("mirror must follow the service, got %+v", m)
	}
}

func TestStoredSessionMovedIsConflict(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.consent.records[1] = granted(1)
	if _, err := h.uc.Status(context.Background(), 1); err != nil {
		t.Fatalf("status: %v", err)
	}

	// another replica clocks the subject in after the mirror was loaded
	h.recorder.mu.Lock()
	h.recorder.sessions[1] = attendance.Session{SubjectID: 1, State: attendance.ClockedIn, ClockInAt: &now}
	h.recorder.mu.Unlock()

	_, err := perform(h, 1, attendance.ClockIn, fix(0, 0))
	if kindOf(t, err) != attendance.KindStateConflict {
		t.Fatalf("duplicate clock in must be a conflict, got %v", err)
	}
	if len(h.audit.events) != 0 {
		t.Fatalf("nothing may be audited for a rejected commit")
	}

	ev, err := perform(h, 1, attendance.ClockOut, fix(0, 0))
	if err != nil {
		t.Fatalf("clock out after reload: %v", err)
	}
	if ev.Session.State != attendance.ClockedOut {
		t.Fatalf("expected clocked out, got %s", ev.Session.State)
	}
}

func TestPreviewNeedsConsent(t *testing.T) {
	t.Parallel()
	h := newHarness(hq())
	pos := &location.Position{Latitude: 0.002, CapturedAt: now}

	if _, err := h.uc.Preview(context.Background(), 1, pos); kindOf(t, err) != attendance.KindConsentRequired {
		t.Fatalf("missing consent must block preview, got %v", err)
	}
	h.consent.records[1] = declined(1)
	d, err := h.uc.Preview(context.Background(), 1, pos)
	if kindOf(t, err) != attendance.KindConsentDeclined {
		t.Fatalf("declined consent must block preview, got %v", err)
	}
	if len(d.Memberships) != 0 {
		t.Fatalf("position must not be evaluated without consent: %+v", d.Memberships)
	}
	if h.consent.calls != 2 {
		t.Fatalf("every preview must read consent, got %d reads", h.consent.calls)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()
	h := newHarness(hq())
	h.consent.records[1] = granted(1)
	d, err := h.uc.Preview(context.Background(), 1, &location.Position{Latitude: 0.002, CapturedAt: now})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if d.CanClockIn || !d.CanClockOut {
		t.Fatalf("unexpected preview %+v", d)
	}
	if h.recorder.loads != 0 || h.recorder.records != 0 {
		t.Fatalf("preview must not touch attendance state")
	}
}
