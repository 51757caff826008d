package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geo-attendance/internal/clock"
)

var (
	ErrNotFound = errors.New("consent not found")
	// ErrNotPersisted accompanies a valid Record whose write failed. The
	// decision may govern the current action only.
	ErrNotPersisted = errors.New("consent decision not persisted")
)

// Record is a subject's location-tracking decision. A missing record and a
// declined record both block location use; only a missing one re-prompts.
type Record struct {
	SubjectID                 uint       `json:"subject_id"`
	ClockTrackingGranted      bool       `json:"clock_tracking_granted"`
	RandomChecksGranted       bool       `json:"random_checks_granted"`
	ContinuousTrackingGranted bool       `json:"continuous_tracking_granted"`
	GrantedAt                 *time.Time `json:"granted_at"`
}

// Granted reports whether location may be used for clock actions.
func (r Record) Granted() bool {
	return r.ClockTrackingGranted
}

type Scopes struct {
	ClockTracking      bool `json:"clock_tracking"`
	RandomChecks       bool `json:"random_checks"`
	ContinuousTracking bool `json:"continuous_tracking"`
}

// Store is the consent persistence service.
type Store interface {
	FindConsent(ctx context.Context, subjectID uint) (Record, error)
	SaveConsent(ctx context.Context, record Record) error
}

type Gate struct {
	store Store
	clock clock.Clock
}

func NewGate(store Store, clk clock.Clock) *Gate {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Gate{store: store, clock: clk}
}

// Get always reads the store; nothing is cached between actions.
// ok is false when the subject never answered the prompt.
func (g *Gate) Get(ctx context.Context, subjectID uint) (rec Record, ok bool, err error) {
	rec, err = g.store.FindConsent(ctx, subjectID)
	if errors.Is(err, ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("read consent: %w", err)
	}
	return rec, true, nil
}

// Set records the clock-tracking decision and keeps the other scopes as
// they were.
func (g *Gate) Set(ctx context.Context, subjectID uint, granted bool) (Record, error) {
	scopes := Scopes{ClockTracking: granted}
	if prev, ok, err := g.Get(ctx, subjectID); err == nil && ok {
		scopes.RandomChecks = prev.RandomChecksGranted
		scopes.ContinuousTracking = prev.ContinuousTrackingGranted
	}
	return g.SetScopes(ctx, subjectID, scopes)
}

// SetScopes records a full decision. The returned record is valid even when
// the error wraps ErrNotPersisted.
func (g *Gate) SetScopes(ctx context.Context, subjectID uint, s Scopes) (Record, error) {
	rec := Record{
		SubjectID:                 subjectID,
		ClockTrackingGranted:      s.ClockTracking,
		RandomChecksGranted:       s.RandomChecks,
		ContinuousTrackingGranted: s.ContinuousTracking,
	}
	if s.ClockTracking || s.RandomChecks || s.ContinuousTracking {
		now := g.clock.Now()
		rec.GrantedAt = &now
	}

	if err := g.store.SaveConsent(ctx, rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return rec, nil
}
