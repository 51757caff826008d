package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"geo-attendance/internal/clock"
)

type memStore struct {
	records  map[uint]Record
	findErr  error
	saveErr  error
	findHits int
}

func newMemStore() *memStore {
	return &memStore{records: map[uint]Record{}}
}

func (m *memStore) FindConsent(_ context.Context, subjectID uint) (Record, error) {
	m.findHits++
	if m.findErr != nil {
		return Record{}, m.findErr
	}
	rec, ok := m.records[subjectID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memStore) SaveConsent(_ context.Context, rec Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[rec.SubjectID] = rec
	return nil
}

var decidedAt = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func TestAbsentConsentIsDistinctFromDecline(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	gate := NewGate(store, clock.Fixed(decidedAt))

	if _, ok, err := gate.Get(context.Background(), 4); err != nil || ok {
		t.Fatalf("expected absent consent, got ok=%v err=%v", ok, err)
	}

	if _, err := gate.Set(context.Background(), 4, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, ok, err := gate.Get(context.Background(), 4)
	if err != nil || !ok {
		t.Fatalf("expected recorded decline, got ok=%v err=%v", ok, err)
	}
	if rec.Granted() || rec.GrantedAt != nil {
		t.Fatalf("decline must not be granted: %+v", rec)
	}
}

func TestGrantStampsTimeAndKeepsOtherScopes(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	gate := NewGate(store, clock.Fixed(decidedAt))
	ctx := context.Background()

	if _, err := gate.SetScopes(ctx, 9, Scopes{ClockTracking: false, RandomChecks: true}); err != nil {
		t.Fatalf("set scopes: %v", err)
	}
	rec, err := gate.Set(ctx, 9, true)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !rec.Granted() || !rec.RandomChecksGranted || rec.ContinuousTrackingGranted {
		t.Fatalf("unexpected scopes %+v", rec)
	}
	if rec.GrantedAt == nil || !rec.GrantedAt.Equal(decidedAt) {
		t.Fatalf("expected granted at %s, got %v", decidedAt, rec.GrantedAt)
	}
}

func TestPersistFailureStillReturnsDecision(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.saveErr = errors.New("connection refused")
	gate := NewGate(store, clock.Fixed(decidedAt))

	rec, err := gate.Set(context.Background(), 2, true)
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	if !rec.Granted() || rec.SubjectID != 2 {
		t.Fatalf("decision must still be returned: %+v", rec)
	}
	if _, ok, _ := gate.Get(context.Background(), 2); ok {
		t.Fatalf("unpersisted decision must not be visible on the next read")
	}
}

func TestGetAlwaysReadsStore(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	gate := NewGate(store, nil)
	for i := 0; i < 3; i++ {
		_, _, _ = gate.Get(context.Background(), 1)
	}
	if store.findHits != 3 {
		t.Fatalf("expected 3 store reads, got %d", store.findHits)
	}

	store.findErr = errors.New("timeout")
	if _, _, err := gate.Get(context.Background(), 1); err == nil {
		t.Fatalf("store failure must surface")
	}
}
