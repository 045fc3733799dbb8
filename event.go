// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

// An Event identifies a point in a task handler's lifecycle at which
// installed hooks run. Hooks always run on the service's serial
// scheduling context.
type Event int

const (
	// BeforeStart identifies the event that occurs the first time a
	// task handler is started, after authorization succeeded.
	BeforeStart Event = iota
	// RateLimitWait identifies the event that occurs when the rate
	// limiter reports a nonzero wait and the handler suspends.
	RateLimitWait
	// BackoffWait identifies the event that occurs when the handler
	// suspends for a retry backoff delay.
	BackoffWait
	// BeforeAttempt identifies the event that occurs immediately before
	// the transport task is resumed.
	BeforeAttempt
	// AfterAttempt identifies the event that occurs after a physical
	// attempt ended, other than by cancellation, and before the retry
	// decision is made. The handler's Response reflects the attempt.
	AfterAttempt
	// BeforeRetry identifies the event that occurs after a retry has
	// been granted and before the handler re-enters its gates.
	BeforeRetry
	// RedirectCeiling identifies the event that occurs when a redirect
	// is refused because the handler reached the redirect ceiling.
	RedirectCeiling
	// AfterExecutionEnd identifies the event that occurs after the
	// handler delivered its single terminal notification.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeStart",
	"RateLimitWait",
	"BackoffWait",
	"BeforeAttempt",
	"AfterAttempt",
	"BeforeRetry",
	"RedirectCeiling",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events, in the order in which
// they would typically occur.
func Events() []Event {
	return []Event{
		BeforeStart,
		RateLimitWait,
		BackoffWait,
		BeforeAttempt,
		AfterAttempt,
		BeforeRetry,
		RedirectCeiling,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
