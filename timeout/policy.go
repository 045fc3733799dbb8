// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/httpexec/request"
)

// A Policy decides the timeout for one transport attempt.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on attempt a of request r.
	Timeout(r *request.Request, a request.Attempt) time.Duration
}

// DefaultAttempt is the per-attempt timeout of DefaultPolicy.
const DefaultAttempt = 30 * time.Second

// DefaultPolicy sets a fixed 30 second timeout on each attempt.
var DefaultPolicy Policy = Fixed(DefaultAttempt)

// Infinite never times out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed returns a policy that sets timeout d on every attempt.
func Fixed(d time.Duration) Policy {
	return policy([]time.Duration{d})
}

// Adaptive returns a policy that lengthens the timeout when the
// previous attempt timed out.
//
// The usual timeout applies to the initial attempt and to any retry
// whose preceding attempt did not time out. After the first timeout of
// a sequence, after[0] is used; after the second, after[1]; and so on,
// with the last element of after repeating.
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	return policy(append(p, after...))
}

type policy []time.Duration

func (p policy) Timeout(_ *request.Request, a request.Attempt) time.Duration {
	if !a.PreviousTimedOut {
		return p[0]
	}

	i := a.Timeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
