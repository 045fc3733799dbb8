// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package transport defines the boundary between the execution engine and
the network transport that actually speaks HTTP, and provides HTTPSession,
an implementation over the standard net/http client.

A Session creates Tasks. A Task does nothing until it is resumed, and may
be cancelled at any time. Progress is reported to the Task's Delegate from
transport goroutines: response headers, body bytes, proposed redirects,
cache decisions and finally completion. Callbacks that take a continuation
block the transport until the continuation is invoked.
*/
package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gogama/httpexec/request"

	"github.com/google/uuid"
)

// ErrCancelled is the completion error of a task that was cancelled.
var ErrCancelled = errors.New("httpexec/transport: task cancelled")

// IsCancelled reports whether err is a completion error caused by
// cancelling the task.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// A Session creates transport tasks.
type Session interface {
	// NewTask creates a suspended task that will execute attempt a of
	// request r and report progress to d.
	NewTask(r *request.Request, a request.Attempt, d Delegate) Task
}

// A Task is one physical attempt to execute a request.
type Task interface {
	// ID returns the task's stable identifier.
	ID() uuid.UUID
	// Request returns the request the task executes.
	Request() *request.Request
	// Resume starts the task. Resuming a running, finished or cancelled
	// task has no effect.
	Resume()
	// Cancel aborts the task. The delegate's Completed method is invoked
	// with an error satisfying IsCancelled unless the task had already
	// completed. Cancelling twice has no additional effect.
	Cancel()
}

// A Disposition tells the transport what to do after response headers
// have been delivered.
type Disposition int

const (
	// Allow continues the task and delivers the body.
	Allow Disposition = iota
	// Ignore cancels the task.
	Ignore
)

// String returns the name of the disposition.
func (d Disposition) String() string {
	if d == Ignore {
		return "Ignore"
	}
	return "Allow"
}

// A ResponseHead is the metadata of a received response, before its body.
type ResponseHead struct {
	StatusCode    int
	Status        string
	Header        http.Header
	URL           *url.URL
	ContentLength int64
}

// A CachedResponse is a complete response the transport proposes to
// store in its platform cache.
type CachedResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
	Expires    time.Time
}

// A Delegate receives task progress. Methods are invoked on transport
// goroutines and must not block except by deferring the continuation.
type Delegate interface {
	// ReceivedResponse is invoked once response headers arrive. The task
	// waits until done is called.
	ReceivedResponse(t Task, head *ResponseHead, done func(Disposition))
	// ReceivedData is invoked for each contiguous byte range of the body.
	// The delegate owns b.
	ReceivedData(t Task, b []byte)
	// Redirect is invoked when the server proposes a redirect to next.
	// Calling done with nil refuses the redirect, and the redirect
	// response itself becomes the final response.
	Redirect(t Task, head *ResponseHead, next *http.Request, done func(*http.Request))
	// WillCache is invoked before a response is stored in the platform
	// cache. Calling done with nil prevents storage.
	WillCache(t Task, proposed *CachedResponse, done func(*CachedResponse))
	// BecameDownload is invoked if the transport converts t into a
	// separate download task.
	BecameDownload(t Task, download Task)
	// Completed is invoked exactly once when the task ends. A nil error
	// means a complete response was received.
	Completed(t Task, err error)
}
