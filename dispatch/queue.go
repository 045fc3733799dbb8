// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package dispatch provides serial scheduling contexts.

A Queue runs submitted functions one at a time, in submission order, on
a single goroutine it owns. Delayed functions are submitted to the same
queue when their delay elapses, so code running on a Queue never
observes itself concurrently.
*/
package dispatch

import (
	"sync"
	"time"
)

// A Scheduler runs functions on a scheduling context.
//
// Async must never block waiting for fn to run, so it is safe to call
// from inside a function already running on the scheduler. After
// returns a handle that can stop the delayed submission.
type Scheduler interface {
	Async(fn func())
	After(d time.Duration, fn func()) Timer
}

// A Timer is a handle to a delayed submission.
type Timer interface {
	// Stop prevents the submission if it has not happened yet, and
	// reports whether it was prevented.
	Stop() bool
}

// A Queue is a serial Scheduler backed by one goroutine and an unbounded
// FIFO. The zero value is not usable; use NewQueue.
type Queue struct {
	lock    sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

// NewQueue starts a new Queue.
func NewQueue() *Queue {
	q := &Queue{
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.lock)
	go q.loop()
	return q
}

// Async submits fn to run after every previously submitted function.
// Functions submitted after Close are dropped.
func (q *Queue) Async(fn func()) {
	q.TryAsync(fn)
}

// TryAsync is like Async but reports whether fn was accepted. It returns
// false once the queue is closed.
func (q *Queue) TryAsync(fn func()) bool {
	if fn == nil {
		panic("httpexec/dispatch: nil func")
	}
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return true
}

// After submits fn once d has elapsed.
func (q *Queue) After(d time.Duration, fn func()) Timer {
	if fn == nil {
		panic("httpexec/dispatch: nil func")
	}
	return time.AfterFunc(d, func() {
		q.Async(fn)
	})
}

// Sync submits fn and blocks until it has run. It must not be called
// from a function running on q. It returns false without running fn if
// q is closed.
func (q *Queue) Sync(fn func()) bool {
	ran := make(chan struct{})
	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return false
	}
	q.pending = append(q.pending, func() {
		defer close(ran)
		fn()
	})
	q.cond.Signal()
	q.lock.Unlock()
	select {
	case <-ran:
		return true
	case <-q.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Close stops accepting new functions. Functions already submitted still
// run. Close returns once the queue goroutine has exited. It must not be
// called from a function running on q.
func (q *Queue) Close() {
	q.lock.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.lock.Unlock()
	<-q.done
}

// Done returns a channel closed once the queue goroutine has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.lock.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.lock.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.lock.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}
