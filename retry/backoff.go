// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import "time"

const (
	// DefaultInitial is the first delay drawn from a default Backoff.
	DefaultInitial = 1 * time.Second
	// DefaultMax is the largest delay a default Backoff produces.
	DefaultMax = 60 * time.Second
)

// A Backoff produces a non-decreasing sequence of wait durations. The
// first call to Next returns the initial interval, and every later call
// doubles the previous value, capped at the maximum.
//
// A Backoff is not safe for concurrent use. The execution engine owns one
// per task handler and only touches it from the handler's serial context.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff constructs a Backoff. Parameter initial must be positive and
// max must be at least initial.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial < 1 {
		panic("httpexec/retry: initial must be positive")
	}
	if max < initial {
		panic("httpexec/retry: max must be at least initial")
	}
	return &Backoff{
		initial: initial,
		max:     max,
	}
}

// NewDefaultBackoff constructs a Backoff using DefaultInitial and
// DefaultMax.
func NewDefaultBackoff() *Backoff {
	return NewBackoff(DefaultInitial, DefaultMax)
}

// Next draws the next wait duration.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
		return b.current
	}

	next := b.current * 2
	if next < b.current || next > b.max {
		next = b.max
	}
	b.current = next
	return next
}

// Reset rewinds the generator so the next draw returns the initial
// interval again.
func (b *Backoff) Reset() {
	b.current = 0
}
