package location

import (
	"context"
	"errors"
)

var ErrNoFix = errors.New("no fix reported by client")

// ReportedFix is the device capability of an HTTP client: the browser or app
// reads its own location and submits it with the request.
type ReportedFix struct {
	Fix *Position
}

func (r ReportedFix) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if r.Fix == nil {
		return Position{}, ErrNoFix
	}
	return *r.Fix, nil
}
