// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import "github.com/gogama/httpexec/dispatch"

// A ConsumptionObserver is notified whenever a transport task ends,
// whether or not a live task handler is associated with it. It is used
// for usage metering. The metering package provides implementations.
type ConsumptionObserver interface {
	EndedRequest()
}

// The ObserverFunc type is an adapter to allow the use of ordinary
// functions as consumption observers.
type ObserverFunc func()

// EndedRequest calls f().
func (f ObserverFunc) EndedRequest() {
	f()
}

type observerEntry struct {
	id       uint64
	observer ConsumptionObserver
	sched    dispatch.Scheduler
}
