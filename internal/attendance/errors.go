package attendance

import (
	"errors"
	"fmt"
	"strings"
)

type RejectionKind string

const (
	KindConsentRequired     RejectionKind = "consent_required"
	KindConsentDeclined     RejectionKind = "consent_declined"
	KindLocationUnavailable RejectionKind = "location_unavailable"
	KindGeofenceViolation   RejectionKind = "geofence_violation"
	KindStateConflict       RejectionKind = "state_conflict"
	KindActionInProgress    RejectionKind = "action_in_progress"
	KindRemoteFailure       RejectionKind = "remote_failure"
)

var (
	ErrConsentRequired     = errors.New("location consent required")
	ErrConsentDeclined     = errors.New("location consent declined")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrGeofenceViolation   = errors.New("outside required geofence")
	ErrStateConflict       = errors.New("attendance state conflict")
	ErrActionInProgress    = fmt.Errorf("%w: another action is in progress", ErrStateConflict)
	ErrRemoteFailure       = errors.New("attendance service unavailable")
)

var sentinels = map[RejectionKind]error{
	KindConsentRequired:     ErrConsentRequired,
	KindConsentDeclined:     ErrConsentDeclined,
	KindLocationUnavailable: ErrLocationUnavailable,
	KindGeofenceViolation:   ErrGeofenceViolation,
	KindStateConflict:       ErrStateConflict,
	KindActionInProgress:    ErrActionInProgress,
	KindRemoteFailure:       ErrRemoteFailure,
}

// ZoneRef names a zone in a rejection.
type ZoneRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Rejection is the expected, user-facing outcome of a refused action.
// Unexpected failures are plain errors and never a Rejection.
type Rejection struct {
	Kind  RejectionKind
	Zones []ZoneRef
	Err   error
}

func Reject(kind RejectionKind, cause error) *Rejection {
	return &Rejection{Kind: kind, Err: cause}
}

func (r *Rejection) Error() string {
	msg := sentinels[r.Kind].Error()
	if len(r.Zones) > 0 {
		names := make([]string, 0, len(r.Zones))
		for _, z := range r.Zones {
			names = append(names, z.Name)
		}
		msg += " (" + strings.Join(names, ", ") + ")"
	}
	if r.Err != nil {
		msg += ": " + r.Err.Error()
	}
	return msg
}

// Is matches the sentinel of the kind, so errors.Is(err, ErrStateConflict)
// holds for in-progress rejections as well.
func (r *Rejection) Is(target error) bool {
	return errors.Is(sentinels[r.Kind], target)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Retryable reports whether the same request may succeed when simply repeated.
func (r *Rejection) Retryable() bool {
	return r.Kind == KindRemoteFailure || r.Kind == KindActionInProgress
}

// AsRejection extracts a Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
