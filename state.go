// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

// A State is a task handler lifecycle state.
type State int

const (
	// Idle is the state of a handler that has not been started.
	Idle State = iota
	// WaitingOnRateLimiter is the state of a handler in, or suspended
	// at, the rate limiter gate.
	WaitingOnRateLimiter
	// WaitingOnRetryBackoff is the state of a handler in, or suspended
	// at, the retry backoff gate.
	WaitingOnRetryBackoff
	// Executing is the state of a handler whose transport task has been
	// resumed but has not yet delivered response headers.
	Executing
	// ReceivingResponse is the state of a handler that received
	// response headers.
	ReceivingResponse
	// ReceivingBody is the state of a handler receiving body bytes.
	ReceivingBody
	// Succeeded is the terminal state after a successful response.
	Succeeded
	// Failed is the terminal state after a failed response.
	Failed
	// Cancelled is the terminal state after cancellation.
	Cancelled
	stateSentinel
)

var stateNames = []string{
	"Idle",
	"WaitingOnRateLimiter",
	"WaitingOnRetryBackoff",
	"Executing",
	"ReceivingResponse",
	"ReceivingBody",
	"Succeeded",
	"Failed",
	"Cancelled",
}

// Terminal reports whether s is one of Succeeded, Failed or Cancelled.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// String returns the name of the state.
func (s State) String() string {
	if s < 0 || s >= stateSentinel {
		return "State(?)"
	}
	return stateNames[s]
}
