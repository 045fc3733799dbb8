// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const nilCtxMsg = "httpexec/request: nil context"

// A Request describes a logical HTTP request. Executing it may result in
// several physical attempts if failed attempts are retried.
//
// The field structure mirrors the parts of http.Request a client needs,
// with a pre-buffered body, plus the execution options understood by the
// execution service.
type Request struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the URL to access.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent.
	Header http.Header

	// Body is the pre-buffered request body. A nil or empty body means
	// no body is sent.
	Body []byte

	// Host optionally overrides the Host header to send. If empty, the
	// value of URL.Host is sent. The resolver keeps the original host
	// here when it rewrites URL to an address.
	Host string

	// Source is a caller-supplied identifier for the origin of the
	// request, carried through to logs and metering.
	Source string

	// MaxRetries is the maximum number of retries allowed after the
	// initial attempt. Zero means the request is attempted once.
	MaxRetries int

	// Chunks selects streaming delivery. When true, each received byte
	// range is forwarded to the response handler as it arrives and no
	// whole-body buffer is kept.
	Chunks bool

	// SkipCache forbids storing the response in the transport's platform
	// cache, and makes the transport bypass cached entries.
	SkipCache bool
}

// New returns a new Request given a method, URL, and optional body.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, io.Reader, or io.ReadCloser. Readers are read to the end and
// buffered.
func New(method, url string, body interface{}) (*Request, error) {
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("httpexec/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   b,
	}, nil
}

// Clone returns a deep copy of r. The body bytes are shared since they
// are never modified.
func (r *Request) Clone() *Request {
	r2 := new(Request)
	*r2 = *r
	if r.URL != nil {
		u := *r.URL
		if r.URL.User != nil {
			u.User = new(urlpkg.Userinfo)
			*u.User = *r.URL.User
		}
		r2.URL = &u
	}
	r2.Header = r.Header.Clone()
	if r2.Header == nil {
		r2.Header = make(http.Header)
	}
	return r2
}

// Hostname returns the host the request is addressed to, without port.
// It returns the empty string if the request has no URL.
func (r *Request) Hostname() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}

// AddCookie adds a cookie to the request. Per RFC 6265 section 5.4,
// AddCookie does not attach more than one Cookie header field.
func (r *Request) AddCookie(c *http.Cookie) {
	c2 := &http.Cookie{Name: c.Name, Value: c.Value}
	s := c2.String()
	if h := r.Header.Get("Cookie"); h != "" {
		r.Header.Set("Cookie", h+"; "+s)
	} else {
		r.Header.Set("Cookie", s)
	}
}

// SetBasicAuth sets the Authorization header to use HTTP Basic
// Authentication with the provided username and password.
func (r *Request) SetBasicAuth(username, password string) {
	r.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// ToHTTP creates the http.Request for one physical attempt. The context
// of the new request is set to ctx, which may not be nil.
func (r *Request) ToHTTP(ctx context.Context) *http.Request {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	method := r.Method
	if method == "" {
		method = "GET"
	}
	hr := &http.Request{
		Method:     method,
		URL:        r.URL,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     r.Header,
		Host:       r.Host,
	}
	if hr.Header == nil {
		hr.Header = make(http.Header)
	}
	if len(r.Body) > 0 {
		hr.Body = io.NopCloser(bytes.NewReader(r.Body))
		hr.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(r.Body)), nil
		}
		hr.ContentLength = int64(len(r.Body))
	}
	return hr.WithContext(ctx)
}

const badBodyTypeMsg = "httpexec/request: invalid type (for body use nil, " +
	"string, []byte, io.Reader or io.ReadCloser)"

// BodyBytes converts a generic body parameter to a byte slice for use as
// a request body.
//
// A nil body gives a nil slice. A string or []byte is converted directly.
// An io.Reader is read to the end, and closed if it is an io.ReadCloser.
// Any other type is an error.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case io.ReadCloser:
		b, err := io.ReadAll(x)
		if err != nil {
			return nil, err
		}
		if err = x.Close(); err != nil {
			return nil, err
		}
		return b, nil
	case io.Reader:
		return BodyBytes(io.NopCloser(x))
	default:
		return nil, errors.New(badBodyTypeMsg)
	}
}

// basicAuth is lifted verbatim from net/http/client.go.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

func validMethod(method string) bool {
	return len(method) > 0 && strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// hasPort is lifted verbatim from net/http/http.go
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
