// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wait provides a bounded, cancellable polling primitive with an
// injectable time source, and the file-size stability condition used to
// detect that an external process has finished writing a file.
package wait

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Until when the condition was not satisfied
// within the configured number of attempts.
var ErrTimeout = errors.New("condition not met before attempt limit")

// Clock is the time source used between attempts.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// RealClock is the production Clock backed by the time package.
type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Condition reports whether the awaited state has been reached. A non-nil
// error stops polling immediately.
type Condition func() (bool, error)

// Poller evaluates a Condition at a fixed interval, a bounded number of times.
type Poller struct {
	Interval time.Duration
	Attempts int
	Clock    Clock
}

// Until evaluates cond up to p.Attempts times, waiting p.Interval after each
// unsatisfied check. It returns the number of checks performed. When the
// attempts are exhausted it returns ErrTimeout; when ctx is cancelled while
// waiting it returns ctx.Err().
func (p Poller) Until(ctx context.Context, cond Condition) (int, error) {
	clock := p.Clock
	if clock == nil {
		clock = RealClock{}
	}

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		ok, err := cond()
		if err != nil {
			return attempt, err
		}
		if ok {
			return attempt, nil
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-clock.After(p.Interval):
		}
	}
	return p.Attempts, ErrTimeout
}
