package audit

import (
	"context"
	"fmt"
	"time"

	"geo-attendance/internal/attendance"
	"geo-attendance/internal/location"

	"github.com/google/uuid"
)

// Entry is one append-only audit row. A transition inside several zones
// produces one entry per zone so compliance review can filter by zone.
type Entry struct {
	ID        uuid.UUID          `json:"id"`
	EventID   uuid.UUID          `json:"event_id"`
	SubjectID uint               `json:"subject_id"`
	Action    attendance.Action  `json:"action"`
	At        time.Time          `json:"at"`
	Position  *location.Position `json:"position,omitempty"`
	ZoneID    *uint              `json:"zone_id,omitempty"`
}

// Sink stores audit entries. It only receives data; there is no query or
// delete surface for the engine.
type Sink interface {
	Ingest(ctx context.Context, entries []Entry) error
}

type Log struct {
	sink  Sink
	newID func() uuid.UUID
}

func NewLog(sink Sink) *Log {
	return &Log{sink: sink, newID: uuid.New}
}

// Append writes the entries of one committed clock event.
func (l *Log) Append(ctx context.Context, ev attendance.ClockEvent) error {
	entries := Expand(ev, l.newID)
	if err := l.sink.Ingest(ctx, entries); err != nil {
		return fmt.Errorf("append audit for event %s: %w", ev.ID, err)
	}
	return nil
}

// Expand fans an event out into entries: one per zone inside, or a single
// zone-less entry when the subject was inside none.
func Expand(ev attendance.ClockEvent, newID func() uuid.UUID) []Entry {
	base := Entry{
		EventID:   ev.ID,
		SubjectID: ev.SubjectID,
		Action:    ev.Action,
		At:        ev.At,
		Position:  ev.Position,
	}

	if len(ev.ZonesInside) == 0 {
		base.ID = newID()
		return []Entry{base}
	}

	entries := make([]Entry, 0, len(ev.ZonesInside))
	for _, zoneID := range ev.ZonesInside {
		e := base
		e.ID = newID()
		id := zoneID
		e.ZoneID = &id
		entries = append(entries, e)
	}
	return entries
}
