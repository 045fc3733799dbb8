// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import (
	"sync/atomic"
	"weak"

	"github.com/google/uuid"
)

// A CancellationToken cancels the request it was returned for. It holds
// only a weak reference to its Service, so an outstanding token does not
// keep a discarded Service alive.
//
// CancellationToken is safe for concurrent use by multiple goroutines.
type CancellationToken struct {
	service   weak.Pointer[Service]
	id        uuid.UUID
	cancelled atomic.Bool
}

func newToken(s *Service, id uuid.UUID) *CancellationToken {
	return &CancellationToken{
		service: weak.Make(s),
		id:      id,
	}
}

// Cancel cancels the request. If the request is waiting to execute or
// executing, its transport task is cancelled and the response handler
// receives CancelledRequest. Cancelling a finished request, or
// cancelling twice, has no effect.
func (t *CancellationToken) Cancel() {
	if !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	if s := t.service.Value(); s != nil {
		s.cancel(t.id)
	}
}

// Cancelled reports whether Cancel has been called.
func (t *CancellationToken) Cancelled() bool {
	return t.cancelled.Load()
}

// ID returns the identifier of the task handler the token cancels.
func (t *CancellationToken) ID() uuid.UUID {
	return t.id
}
