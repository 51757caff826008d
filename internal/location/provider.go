package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geo-attendance/internal/clock"
)

var ErrUnavailable = errors.New("location unavailable")

// Device is the platform capability that yields one current position.
type Device interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Provider acquires single-shot positions. It never retries; a retry is a
// new user action.
type Provider struct {
	clock  clock.Clock
	maxAge time.Duration
}

func NewProvider(clk clock.Clock, maxAge time.Duration) *Provider {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Provider{clock: clk, maxAge: maxAge}
}

type result struct {
	pos Position
	err error
}

// Acquire races the device against timeout. Every failure (timeout, device
// error, panic, invalid or stale fix) comes back wrapped in ErrUnavailable.
func (p *Provider) Acquire(ctx context.Context, device Device, timeout time.Duration) (Position, error) {
	if device == nil {
		return Position{}, fmt.Errorf("%w: no device", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// buffered so a late device answer never blocks the goroutine
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("device panic: %v", r)}
			}
		}()
		pos, err := device.CurrentPosition(ctx)
		done <- result{pos: pos, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return Position{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrUnavailable, res.err)
	}
	if err := res.pos.Validate(); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if p.maxAge > 0 && !res.pos.FreshAt(p.clock.Now(), p.maxAge) {
		return Position{}, fmt.Errorf("%w: fix captured at %s is stale", ErrUnavailable, res.pos.CapturedAt.Format(time.RFC3339))
	}
	return res.pos, nil
}
