// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	r := &Request{Method: "GET", URL: &url.URL{Scheme: "https", Host: "example.com"}}
	resp := Empty(r)
	assert.Same(t, r, resp.Request)
	assert.Equal(t, 0, resp.StatusCode)
	assert.Nil(t, resp.Header)
	assert.Equal(t, int64(-1), resp.ContentLength)
	assert.Equal(t, "https://example.com", resp.TargetURL().String())
	assert.False(t, resp.Successful())
}

func TestFromHead(t *testing.T) {
	r := &Request{Method: "GET", URL: &url.URL{Scheme: "https", Host: "example.com"}}
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &url.URL{Scheme: "https", Host: "other.example.com"}
	h := http.Header{"Retry-After": []string{"30"}}
	resp := FromHead(r, 503, "503 Service Unavailable", h, u, 12, now)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, int64(12), resp.ContentLength)
	assert.Same(t, u, resp.TargetURL())
	assert.Equal(t, now.Add(30*time.Second), resp.RetryAfter)
}

func TestResponse_Finish(t *testing.T) {
	r := &Request{Method: "POST", URL: &url.URL{Scheme: "https", Host: "example.com", Path: "/x"}}
	t.Run("success", func(t *testing.T) {
		resp := FromHead(r, 200, "200 OK", http.Header{}, r.URL, 3, time.Now())
		resp.Finish(nil, []byte("foo"), time.Second)
		assert.NoError(t, resp.Err)
		assert.Equal(t, []byte("foo"), resp.Body)
		assert.Equal(t, time.Second, resp.Duration)
		assert.True(t, resp.Successful())
	})
	t.Run("status error", func(t *testing.T) {
		resp := FromHead(r, 502, "502 Bad Gateway", http.Header{}, r.URL, 0, time.Now())
		resp.Finish(nil, nil, 0)
		var se *StatusError
		require.True(t, errors.As(resp.Err, &se))
		assert.Equal(t, 502, se.StatusCode)
		assert.EqualError(t, se, "httpexec: unsuccessful status 502 Bad Gateway")
		assert.EqualError(t, &StatusError{StatusCode: 404}, "httpexec: unsuccessful status 404")
	})
	t.Run("transport error", func(t *testing.T) {
		resp := Empty(r)
		resp.Finish(syscall.ETIMEDOUT, nil, 0)
		var ue *url.Error
		require.True(t, errors.As(resp.Err, &ue))
		assert.Equal(t, "Post", ue.Op)
		assert.Equal(t, "https://example.com/x", ue.URL)
		assert.True(t, resp.Timeout())
	})
	t.Run("url error kept", func(t *testing.T) {
		orig := &url.Error{Op: "Get", URL: "u", Err: errors.New("boom")}
		resp := Empty(r)
		resp.Finish(orig, nil, 0)
		assert.Same(t, orig, resp.Err)
	})
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		value    string
		expected time.Time
	}{
		{"absent", "", time.Time{}},
		{"seconds", "120", now.Add(2 * time.Minute)},
		{"zero", "0", now},
		{"negative", "-5", time.Time{}},
		{"http date", "Mon, 01 Mar 2021 12:05:00 GMT", now.Add(5 * time.Minute)},
		{"garbage", "soon", time.Time{}},
		{"largest seconds", "9223372036", now.Add(9223372036 * time.Second)},
		{"seconds overflowing duration", "9223372037", now.Add(time.Duration(maxRetryAfterSeconds) * time.Second)},
		{"seconds overflowing int64", "99999999999999999999", now.Add(time.Duration(maxRetryAfterSeconds) * time.Second)},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h := http.Header{}
			if testCase.value != "" {
				h.Set("Retry-After", testCase.value)
			}
			assert.True(t, testCase.expected.Equal(ParseRetryAfter(h, now)))
		})
	}
}

func TestURLErrorOp(t *testing.T) {
	assert.Equal(t, "Get", urlErrorOp(""))
	assert.Equal(t, "Get", urlErrorOp("GET"))
	assert.Equal(t, "X", urlErrorOp("X"))
	assert.Equal(t, "Put", urlErrorOp("PUT"))
}
