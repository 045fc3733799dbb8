// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import (
	"context"
	"net/url"

	"github.com/gogama/httpexec/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes a request and blocks until its terminal outcome. Service
// implements the Doer interface.
type Doer interface {
	Do(ctx context.Context, r *request.Request) (*request.Response, error)
}

// Performer is the interface that wraps the asynchronous PerformRequest
// method. Service implements the Performer interface.
type Performer interface {
	PerformRequest(ctx context.Context, rh ResponseHandler, r *request.Request) *CancellationToken
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any connections which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
type IdleCloser interface {
	CloseIdleConnections()
}

// Get uses the specified Doer to issue a GET to the specified URL.
//
// To make a request with custom headers or options, use request.New and
// d.Do.
func Get(d Doer, url string) (*request.Response, error) {
	r, err := request.New("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(context.Background(), r)
}

// Head uses the specified Doer to issue a HEAD to the specified URL.
func Head(d Doer, url string) (*request.Response, error) {
	r, err := request.New("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(context.Background(), r)
}

// Post uses the specified Doer to issue a POST to the specified URL.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.New and request.BodyBytes, namely: string;
// []byte; io.Reader; and io.ReadCloser.
func Post(d Doer, url, contentType string, body interface{}) (*request.Response, error) {
	r, err := request.New("POST", url, body)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", contentType)
	return d.Do(context.Background(), r)
}

// PostForm uses the specified Doer to issue a POST to the specified URL,
// with data's keys and values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
func PostForm(d Doer, url string, data url.Values) (*request.Response, error) {
	return Post(d, url, "application/x-www-form-urlencoded", data.Encode())
}
