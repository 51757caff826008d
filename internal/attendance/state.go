package attendance

import (
	"fmt"
	"time"
)

// Session mirrors the subject's attendance state. The zero value is a
// clocked-out session.
type Session struct {
	SubjectID    uint       `json:"subject_id"`
	State        State      `json:"state"`
	ClockInAt    *time.Time `json:"clock_in_at"`
	BreakStartAt *time.Time `json:"break_start_at"`
}

func NewSession(subjectID uint) Session {
	return Session{SubjectID: subjectID, State: ClockedOut}
}

type transition struct {
	from   State
	action Action
}

var transitions = map[transition]State{
	{ClockedOut, ClockIn}:   ClockedIn,
	{ClockedIn, StartBreak}: OnBreak,
	{OnBreak, EndBreak}:     ClockedIn,
	{ClockedIn, ClockOut}:   ClockedOut,
}

// Next returns the state reached by applying action from state, or a
// StateConflict rejection. Repeating an action is a conflict too.
func Next(from State, action Action) (State, error) {
	if from == "" {
		from = ClockedOut
	}
	to, ok := transitions[transition{from, action}]
	if !ok {
		return from, Reject(KindStateConflict, fmt.Errorf("cannot %s while %s", action, from))
	}
	return to, nil
}

// Guard checks the transition without computing the new session.
func (s Session) Guard(action Action) error {
	_, err := Next(s.State, action)
	return err
}

// Apply returns the session after action at the given instant. The receiver
// is left untouched, so a failed commit simply keeps the old value.
func (s Session) Apply(action Action, at time.Time) (Session, error) {
	to, err := Next(s.State, action)
	if err != nil {
		return s, err
	}

	next := s
	next.State = to
	switch action {
	case ClockIn:
		next.ClockInAt = &at
		next.BreakStartAt = nil
	case StartBreak:
		next.BreakStartAt = &at
	case EndBreak:
		next.BreakStartAt = nil
	case ClockOut:
		next.ClockInAt = nil
		next.BreakStartAt = nil
	}
	return next, nil
}
