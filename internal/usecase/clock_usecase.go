package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"geo-attendance/internal/attendance"
	"geo-attendance/internal/clock"
	"geo-attendance/internal/consent"
	"geo-attendance/internal/geofence"
	"geo-attendance/internal/location"
	"geo-attendance/internal/logging"
	"geo-attendance/internal/notify"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

const notifyTimeout = 30 * time.Second

var errPromptDismissed = errors.New("consent prompt dismissed")

type ConsentReader interface {
	Get(ctx context.Context, subjectID uint) (consent.Record, bool, error)
}

// ZoneDirectory looks up the zones assigned to a subject.
type ZoneDirectory interface {
	ZonesForSubject(ctx context.Context, subjectID uint) ([]geofence.Zone, error)
}

// AttendanceRecorder is the authoritative attendance store. Record persists
// the transition only while the stored state is still from, and returns the
// session as stored. A mismatch is an error wrapping
// attendance.ErrStateConflict.
type AttendanceRecorder interface {
	CurrentSession(ctx context.Context, subjectID uint) (attendance.Session, error)
	Record(ctx context.Context, from attendance.State, next attendance.Session, ev attendance.ClockEvent) (attendance.Session, error)
}

type AuditAppender interface {
	Append(ctx context.Context, ev attendance.ClockEvent) error
}

type ViolationNotifier interface {
	NotifyViolation(ctx context.Context, v notify.Violation) error
}

type ClockConfig struct {
	LocationTimeout   time.Duration
	ZoneLookupTimeout time.Duration
	RecordTimeout     time.Duration
}

type ClockDeps struct {
	Consent  ConsentReader
	Locator  *location.Provider
	Zones    ZoneDirectory
	Recorder AttendanceRecorder
	Audit    AuditAppender
	Notifier ViolationNotifier // optional
	Clock    clock.Clock
	Logger   hclog.Logger
}

// ClockRequest is one user-initiated attendance action.
type ClockRequest struct {
	SubjectID uint
	Action    attendance.Action
	Device    location.Device
	// Consent carries the answer the subject just gave to the prompt. It
	// governs this action even if persisting it failed.
	Consent *consent.Record
	// PromptDismissed abandons the action without assuming any consent.
	PromptDismissed bool
}

type mirror struct {
	session attendance.Session
	stale   bool
}

// ClockUsecase coordinates consent, location, zone policy, the session state
// machine, the remote record call and the audit log.
type ClockUsecase struct {
	consent  ConsentReader
	locator  *location.Provider
	zones    ZoneDirectory
	recorder AttendanceRecorder
	audit    AuditAppender
	notifier ViolationNotifier
	clock    clock.Clock
	cfg      ClockConfig
	log      hclog.Logger

	mu       sync.Mutex
	inFlight map[uint]struct{}
	sessions map[uint]mirror
}

func NewClockUsecase(deps ClockDeps, cfg ClockConfig) *ClockUsecase {
	clk := deps.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	locator := deps.Locator
	if locator == nil {
		locator = location.NewProvider(clk, 0)
	}
	return &ClockUsecase{
		consent:  deps.Consent,
		locator:  locator,
		zones:    deps.Zones,
		recorder: deps.Recorder,
		audit:    deps.Audit,
		notifier: deps.Notifier,
		clock:    clk,
		cfg:      cfg,
		log:      logging.OrNull(deps.Logger).Named("clock"),
		inFlight: map[uint]struct{}{},
		sessions: map[uint]mirror{},
	}
}

// Perform runs one action end to end. Expected refusals come back as
// *attendance.Rejection; any other error is unexpected.
func (u *ClockUsecase) Perform(ctx context.Context, req ClockRequest) (attendance.ClockEvent, error) {
	log := u.log.With("subject", req.SubjectID, "action", req.Action)

	if !u.begin(req.SubjectID) {
		log.Debug("rejected, action already in flight")
		return attendance.ClockEvent{}, attendance.Reject(attendance.KindActionInProgress, nil)
	}
	defer u.end(req.SubjectID)

	// 1. Consent
	if req.PromptDismissed {
		return attendance.ClockEvent{}, attendance.Reject(attendance.KindConsentRequired, errPromptDismissed)
	}
	decision, err := u.consentFor(ctx, req)
	if err != nil {
		return attendance.ClockEvent{}, err
	}

	// 2. Location, best effort and only with consent
	var pos *location.Position
	if decision.Granted() {
		p, err := u.locator.Acquire(ctx, req.Device, u.cfg.LocationTimeout)
		if err != nil {
			log.Info("proceeding without location", "reason", err)
		} else {
			pos = &p
		}
	}

	// 3. Zone policy
	zones, err := u.lookupZones(ctx, req.SubjectID)
	if err != nil {
		return attendance.ClockEvent{}, err
	}
	geo := geofence.Evaluate(pos, zones)
	if !geo.Permits(req.Action) {
		rej := u.violation(req, decision, geo)
		log.Info("geofence violation", "zones", len(rej.Zones), "position_known", geo.PositionKnown)
		return attendance.ClockEvent{}, rej
	}

	// 4. State machine guard
	current, err := u.session(ctx, req.SubjectID)
	if err != nil {
		return attendance.ClockEvent{}, err
	}
	now := u.clock.Now()
	next, err := current.Apply(req.Action, now)
	if err != nil {
		log.Debug("state guard rejected", "state", current.State)
		return attendance.ClockEvent{}, err
	}

	ev := attendance.ClockEvent{
		ID:          uuid.New(),
		SubjectID:   req.SubjectID,
		Action:      req.Action,
		At:          now,
		Position:    pos,
		ZonesInside: geo.InsideZoneIDs(),
	}

	// 5. Remote commit; the mirror only moves after it succeeds
	rctx, cancel := context.WithTimeout(ctx, u.cfg.RecordTimeout)
	stored, err := u.recorder.Record(rctx, current.State, next, ev)
	cancel()
	if err != nil {
		u.markStale(req.SubjectID)
		if errors.Is(err, attendance.ErrStateConflict) {
			log.Info("stored session moved since it was loaded", "expected", current.State, "error", err)
			return attendance.ClockEvent{}, attendance.Reject(attendance.KindStateConflict, err)
		}
		log.Warn("attendance record failed", "error", err)
		return attendance.ClockEvent{}, attendance.Reject(attendance.KindRemoteFailure, err)
	}
	stored.SubjectID = req.SubjectID
	u.store(req.SubjectID, stored)
	ev.Session = stored

	// 6. Audit, strictly after the commit
	if err := u.audit.Append(ctx, ev); err != nil {
		log.Error("audit append failed after commit", "event", ev.ID, "error", err)
	}

	log.Info("clock action committed", "event", ev.ID, "state", stored.State, "zones_inside", ev.ZonesInside)
	return ev, nil
}

// Status reloads the authoritative session of a subject.
func (u *ClockUsecase) Status(ctx context.Context, subjectID uint) (attendance.Session, error) {
	rctx, cancel := context.WithTimeout(ctx, u.cfg.RecordTimeout)
	defer cancel()
	s, err := u.recorder.CurrentSession(rctx, subjectID)
	if err != nil {
		return attendance.Session{}, attendance.Reject(attendance.KindRemoteFailure, err)
	}
	s.SubjectID = subjectID

	u.mu.Lock()
	if _, busy := u.inFlight[subjectID]; !busy {
		u.sessions[subjectID] = mirror{session: s}
	}
	u.mu.Unlock()
	return s, nil
}

// Preview evaluates zone policy for a position without changing any state.
// The position is only used when the subject granted clock tracking.
func (u *ClockUsecase) Preview(ctx context.Context, subjectID uint, pos *location.Position) (geofence.Decision, error) {
	rec, err := u.consentFor(ctx, ClockRequest{SubjectID: subjectID})
	if err != nil {
		return geofence.Decision{}, err
	}
	if !rec.Granted() {
		return geofence.Decision{}, attendance.Reject(attendance.KindConsentDeclined, nil)
	}

	zones, err := u.lookupZones(ctx, subjectID)
	if err != nil {
		return geofence.Decision{}, err
	}
	return geofence.Evaluate(pos, zones), nil
}

func (u *ClockUsecase) consentFor(ctx context.Context, req ClockRequest) (consent.Record, error) {
	if req.Consent != nil {
		return *req.Consent, nil
	}
	rec, ok, err := u.consent.Get(ctx, req.SubjectID)
	if err != nil {
		return consent.Record{}, attendance.Reject(attendance.KindRemoteFailure, err)
	}
	if !ok {
		return consent.Record{}, attendance.Reject(attendance.KindConsentRequired, nil)
	}
	return rec, nil
}

func (u *ClockUsecase) lookupZones(ctx context.Context, subjectID uint) ([]geofence.Zone, error) {
	zctx, cancel := context.WithTimeout(ctx, u.cfg.ZoneLookupTimeout)
	defer cancel()
	zones, err := u.zones.ZonesForSubject(zctx, subjectID)
	if err != nil {
		return nil, attendance.Reject(attendance.KindRemoteFailure, fmt.Errorf("zone lookup: %w", err))
	}
	for _, z := range zones {
		if err := z.Validate(); err != nil {
			return nil, fmt.Errorf("malformed zone configuration: %w", err)
		}
	}
	return zones, nil
}

func (u *ClockUsecase) violation(req ClockRequest, decision consent.Record, geo geofence.Decision) *attendance.Rejection {
	blocking := geo.Violations(req.Action)
	rej := attendance.Reject(attendance.KindGeofenceViolation, nil)
	for _, z := range blocking {
		rej.Zones = append(rej.Zones, z.Ref())
	}
	if !geo.PositionKnown {
		if decision.Granted() {
			rej.Err = attendance.ErrLocationUnavailable
		} else {
			rej.Err = attendance.ErrConsentDeclined
		}
	}

	if u.notifier != nil {
		v := notify.Violation{
			SubjectID:     req.SubjectID,
			Action:        req.Action,
			At:            u.clock.Now(),
			Zones:         rej.Zones,
			PositionKnown: geo.PositionKnown,
		}
		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := u.notifier.NotifyViolation(nctx, v); err != nil {
				u.log.Warn("violation notice failed", "subject", v.SubjectID, "error", err)
			}
		}()
	}
	return rej
}

// session returns the mirrored session, loading it from the recorder when
// there is none yet or the last commit failed.
func (u *ClockUsecase) session(ctx context.Context, subjectID uint) (attendance.Session, error) {
	u.mu.Lock()
	m, ok := u.sessions[subjectID]
	u.mu.Unlock()
	if ok && !m.stale {
		return m.session, nil
	}

	rctx, cancel := context.WithTimeout(ctx, u.cfg.RecordTimeout)
	defer cancel()
	s, err := u.recorder.CurrentSession(rctx, subjectID)
	if err != nil {
		return attendance.Session{}, attendance.Reject(attendance.KindRemoteFailure, fmt.Errorf("load session: %w", err))
	}
	u.store(subjectID, s)
	return s, nil
}

// Mirror returns the local copy of a subject's session, if one is loaded.
func (u *ClockUsecase) Mirror(subjectID uint) (attendance.Session, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.sessions[subjectID]
	return m.session, ok
}

func (u *ClockUsecase) store(subjectID uint, s attendance.Session) {
	s.SubjectID = subjectID
	u.mu.Lock()
	u.sessions[subjectID] = mirror{session: s}
	u.mu.Unlock()
}

func (u *ClockUsecase) markStale(subjectID uint) {
	u.mu.Lock()
	if m, ok := u.sessions[subjectID]; ok {
		m.stale = true
		u.sessions[subjectID] = m
	}
	u.mu.Unlock()
}

func (u *ClockUsecase) begin(subjectID uint) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, busy := u.inFlight[subjectID]; busy {
		return false
	}
	u.inFlight[subjectID] = struct{}{}
	return true
}

func (u *ClockUsecase) end(subjectID uint) {
	u.mu.Lock()
	delete(u.inFlight, subjectID)
	u.mu.Unlock()
}
