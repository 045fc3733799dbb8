// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"syscall"
	"testing"

	"github.com/gogama/httpexec/request"

	"github.com/stretchr/testify/assert"
)

var transientErrs = []error{
	syscall.ETIMEDOUT,
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	&url.Error{Err: syscall.ECONNRESET},
}

var nonTransientErrs = []error{
	errors.New("foo"),
	context.Canceled,
	&url.Error{Err: errors.New("bar")},
}

func TestDefaultClassifier(t *testing.T) {
	t.Run("Retryable status codes", func(t *testing.T) {
		for i, code := range []int{408, 429, 500, 502, 503, 504} {
			resp := &request.Response{StatusCode: code, Err: &request.StatusError{StatusCode: code}}
			assert.True(t, DefaultClassifier.Retryable(resp), fmt.Sprintf("codes[%d]=%d", i, code))
		}
	})
	t.Run("Non-retryable status codes", func(t *testing.T) {
		for i, code := range []int{200, 204, 400, 401, 403, 404, 501} {
			resp := &request.Response{StatusCode: code}
			assert.False(t, DefaultClassifier.Retryable(resp), fmt.Sprintf("codes[%d]=%d", i, code))
		}
	})
	t.Run("Transient errors", func(t *testing.T) {
		for i, err := range transientErrs {
			resp := &request.Response{Err: err}
			assert.True(t, DefaultClassifier.Retryable(resp), fmt.Sprintf("transientErrs[%d]=%v", i, err))
		}
	})
	t.Run("Non-transient errors", func(t *testing.T) {
		for i, err := range nonTransientErrs {
			resp := &request.Response{Err: err}
			assert.False(t, DefaultClassifier.Retryable(resp), fmt.Sprintf("nonTransientErrs[%d]=%v", i, err))
		}
	})
}

func TestClassifierFunc(t *testing.T) {
	yes := ClassifierFunc(func(_ *request.Response) bool { return true })
	no := ClassifierFunc(func(_ *request.Response) bool { return false })
	var calls int
	counting := ClassifierFunc(func(_ *request.Response) bool { calls++; return true })
	resp := &request.Response{}

	assert.True(t, yes.And(yes).Retryable(resp))
	assert.False(t, yes.And(no).Retryable(resp))
	assert.False(t, no.And(counting).Retryable(resp))
	assert.Equal(t, 0, calls, "And must short-circuit")
	assert.True(t, no.Or(yes).Retryable(resp))
	assert.False(t, no.Or(no).Retryable(resp))
	assert.True(t, yes.Or(counting).Retryable(resp))
	assert.Equal(t, 0, calls, "Or must short-circuit")
	assert.False(t, Never.Retryable(&request.Response{StatusCode: 503}))
}

func TestStatusCode(t *testing.T) {
	codes := []int{418}
	c := StatusCode(codes...)
	codes[0] = 200
	assert.True(t, c.Retryable(&request.Response{StatusCode: 418}))
	assert.False(t, c.Retryable(&request.Response{StatusCode: 200}))
	assert.False(t, StatusCode().Retryable(&request.Response{StatusCode: 418}))
}
