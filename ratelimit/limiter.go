// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ratelimit provides the per-host admission controller used by
// the execution engine to space out requests and to honour server
// supplied Retry-After hints.
package ratelimit

import (
	"net/url"
	"sync"
	"time"

	"github.com/gogama/httpexec/internal/hostkey"
	"github.com/gogama/httpexec/request"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the default per-host ceiling.
	DefaultRequestsPerSecond = 10
	// DefaultBurst is the default number of requests a host may receive
	// back to back before spacing applies.
	DefaultBurst = 1
)

// A Limiter decides how long a request to a given host must wait before
// it may execute.
//
// Each host gets a token bucket refilled at the configured rate. A host's
// bucket is only drained when an execution is recorded, so asking how
// long to wait never consumes capacity. Retry-After overrides dominate
// the bucket until they expire.
//
// Limiter is safe for concurrent use by multiple goroutines.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	lock       sync.Mutex
	hosts      map[string]*rate.Limiter
	retryAfter map[string]time.Time
}

// An Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New constructs a Limiter allowing requestsPerSecond requests to each
// host, with the given burst. A non-positive rate disables the
// per-host ceiling (Retry-After overrides still apply). A burst below
// one is treated as one.
func New(requestsPerSecond float64, burst int, opts ...Option) *Limiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		limit:      limit,
		burst:      burst,
		now:        time.Now,
		hosts:      make(map[string]*rate.Limiter),
		retryAfter: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDefault constructs a Limiter using DefaultRequestsPerSecond and
// DefaultBurst.
func NewDefault(opts ...Option) *Limiter {
	return New(DefaultRequestsPerSecond, DefaultBurst, opts...)
}

// TimeUntilExecutable returns zero if a request to host may execute now,
// and otherwise the remaining wait.
func (l *Limiter) TimeUntilExecutable(host string) time.Duration {
	key := hostkey.Of(host)
	l.lock.Lock()
	defer l.lock.Unlock()
	now := l.now()

	if until, ok := l.retryAfter[key]; ok {
		if now.Before(until) {
			return until.Sub(now)
		}
		delete(l.retryAfter, key)
	}

	if l.limit == rate.Inf {
		return 0
	}
	lim, ok := l.hosts[key]
	if !ok {
		return 0
	}
	tokens := lim.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	wait := time.Duration((1 - tokens) / float64(l.limit) * float64(time.Second))
	if wait <= 0 {
		// Rounding must never turn a blocked host into an open one.
		wait = time.Nanosecond
	}
	return wait
}

// RecordExecuted records that a physical attempt for r reached the
// transport now.
func (l *Limiter) RecordExecuted(r *request.Request) {
	key := hostkey.Of(r.Hostname())
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.limit == rate.Inf {
		return
	}
	lim, ok := l.hosts[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.hosts[key] = lim
	}
	lim.ReserveN(l.now(), 1)
}

// SetRetryAfter installs, or overwrites, an override blocking requests to
// u's host until the absolute time until.
func (l *Limiter) SetRetryAfter(until time.Time, u *url.URL) {
	if u == nil {
		return
	}
	key := hostkey.Of(u.Hostname())
	l.lock.Lock()
	defer l.lock.Unlock()
	l.retryAfter[key] = until
}

// Forget drops all state held for host.
func (l *Limiter) Forget(host string) {
	key := hostkey.Of(host)
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.hosts, key)
	delete(l.retryAfter, key)
}
