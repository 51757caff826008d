package attendance

import "fmt"

type Action string

const (
	ClockIn    Action = "CLOCK_IN"
	ClockOut   Action = "CLOCK_OUT"
	StartBreak Action = "START_BREAK"
	EndBreak   Action = "END_BREAK"
)

var actionSlugs = map[string]Action{
	"clock-in":    ClockIn,
	"clock-out":   ClockOut,
	"break-start": StartBreak,
	"break-end":   EndBreak,
}

// ParseAction accepts either the route slug ("clock-in") or the stored name ("CLOCK_IN").
func ParseAction(s string) (Action, error) {
	if a, ok := actionSlugs[s]; ok {
		return a, nil
	}
	switch a := Action(s); a {
	case ClockIn, ClockOut, StartBreak, EndBreak:
		return a, nil
	}
	return "", fmt.Errorf("unknown attendance action %q", s)
}

// GeofenceGated reports whether the action is subject to zone policy.
// Breaks happen inside an already validated session.
func (a Action) GeofenceGated() bool {
	return a == ClockIn || a == ClockOut
}

type State string

const (
	ClockedOut State = "CLOCKED_OUT"
	ClockedIn  State = "CLOCKED_IN"
	OnBreak    State = "ON_BREAK"
)

func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case ClockedOut, ClockedIn, OnBreak:
		return st, nil
	case "":
		return ClockedOut, nil
	}
	return "", fmt.Errorf("unknown attendance state %q", s)
}
