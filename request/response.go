// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gogama/httpexec/transient"
)

// ErrNoResponse indicates an execution ended without producing an
// outcome from the transport, for example because the execution service
// was closed while the request was still waiting to run.
var ErrNoResponse = errors.New("httpexec/request: execution ended without a response")

// A StatusError is attached to a Response whose attempt completed at the
// transport level but whose HTTP status code indicates failure (400 and
// above).
type StatusError struct {
	StatusCode int
	Status     string
}

func (err *StatusError) Error() string {
	if err.Status != "" {
		return "httpexec: unsuccessful status " + err.Status
	}
	return "httpexec: unsuccessful status " + strconv.Itoa(err.StatusCode)
}

// A Response describes the outcome of executing a Request.
//
// The execution engine creates a Response when response headers first
// arrive (with no body and no error), and completes it in place when
// the attempt ends. Once delivered to a response handler, a Response is
// owned by the receiver and is not touched again by the engine.
type Response struct {
	// Request is the request this response answers. It is never nil.
	Request *Request

	// StatusCode is the HTTP status code, or zero if no response
	// headers were received.
	StatusCode int

	// Status is the HTTP status line text, e.g. "200 OK".
	Status string

	// Header holds the response header fields. It is nil if no
	// response headers were received.
	Header http.Header

	// URL is the URL the final response came from. It differs from
	// Request.URL after redirects and is nil if no response headers
	// were received.
	URL *url.URL

	// ContentLength is the declared body length, or -1 if unknown.
	ContentLength int64

	// Body is the accumulated response body. It is always nil when the
	// request was executed in chunked mode.
	Body []byte

	// Err is the error the execution ended with, if any. Transport
	// errors are always of type *url.Error. An unsuccessful HTTP status
	// without a transport error is reported as *StatusError.
	Err error

	// RetryAfter is the absolute time parsed from a Retry-After header,
	// or the zero time if the server sent none.
	RetryAfter time.Time

	// Duration is the wall-clock duration of the final attempt.
	Duration time.Duration
}

// Empty returns a Response to r with no status, headers, body or error.
func Empty(r *Request) *Response {
	return &Response{
		Request:       r,
		ContentLength: -1,
	}
}

// FromHead returns a Response to r built from the transport's response
// metadata. Relative Retry-After values are resolved against now.
func FromHead(r *Request, statusCode int, status string, header http.Header, u *url.URL, contentLength int64, now time.Time) *Response {
	return &Response{
		Request:       r,
		StatusCode:    statusCode,
		Status:        status,
		Header:        header,
		URL:           u,
		ContentLength: contentLength,
		RetryAfter:    ParseRetryAfter(header, now),
	}
}

// Finish completes the response in place with the outcome of the
// attempt. A non-nil transport error is wrapped as a *url.Error;
// otherwise an unsuccessful status code is converted to *StatusError.
func (resp *Response) Finish(err error, body []byte, elapsed time.Duration) {
	switch {
	case err != nil:
		resp.Err = urlErrorWrap(resp.Request, err)
	case resp.StatusCode >= 400:
		resp.Err = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	default:
		resp.Err = nil
	}
	resp.Body = body
	resp.Duration = elapsed
}

// TargetURL returns the URL the response came from, falling back to the
// request URL when no response headers were received.
func (resp *Response) TargetURL() *url.URL {
	if resp.URL != nil {
		return resp.URL
	}
	return resp.Request.URL
}

// Timeout indicates whether Err contains a timeout.
func (resp *Response) Timeout() bool {
	return transient.Categorize(resp.Err) == transient.Timeout
}

// Successful indicates whether the response ended without error.
func (resp *Response) Successful() bool {
	return resp.Err == nil && resp.StatusCode > 0
}

// maxRetryAfterSeconds is the largest delta-seconds value representable
// as a time.Duration.
const maxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)

// ParseRetryAfter returns the absolute time indicated by the Retry-After
// header in h, which may be given either as delta-seconds or as an
// HTTP-date. It returns the zero time if the header is absent or
// malformed. Delta-seconds too large for a time.Duration are clamped.
func ParseRetryAfter(h http.Header, now time.Time) time.Time {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if errors.Is(err, strconv.ErrRange) && secs > 0 {
		err = nil
	}
	if err == nil {
		if secs < 0 {
			return time.Time{}
		}
		if secs > maxRetryAfterSeconds {
			secs = maxRetryAfterSeconds
		}
		return now.Add(time.Duration(secs) * time.Second)
	}
	if t, err := http.ParseTime(v); err == nil {
		return t
	}
	return time.Time{}
}

// WrapError returns err wrapped in a *url.Error describing r, or err
// itself if it already contains a *url.Error.
func WrapError(r *Request, err error) error {
	return urlErrorWrap(r, err)
}

func urlErrorWrap(r *Request, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return err
	}

	u := ""
	if r != nil && r.URL != nil {
		u = r.URL.String()
	}
	method := ""
	if r != nil {
		method = r.Method
	}
	return &url.Error{
		Op:  urlErrorOp(method),
		URL: u,
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}

// String implements fmt.Stringer for log output.
func (resp *Response) String() string {
	return fmt.Sprintf("%s %s -> %d (%v)", resp.Request.Method, resp.TargetURL(), resp.StatusCode, resp.Err)
}
