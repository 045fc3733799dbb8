// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"github.com/gogama/httpexec/request"
	"github.com/gogama/httpexec/transient"
)

// A Classifier decides whether a failed response is eligible for retry.
// It is only consulted when the response carries an error.
//
// Implementations of Classifier must be safe for concurrent use by
// multiple goroutines.
type Classifier interface {
	Retryable(resp *request.Response) bool
}

// The ClassifierFunc type is an adapter to allow the use of ordinary
// functions as classifiers. It also provides the logical composition
// methods And and Or.
type ClassifierFunc func(resp *request.Response) bool

// DefaultClassifier retries transient transport errors (TransientErr)
// and responses with one of the following status codes: 408 (Request
// Timeout); 429 (Too Many Requests); 500 (Internal Server Error); 502
// (Bad Gateway); 503 (Service Unavailable); or 504 (Gateway Timeout).
var DefaultClassifier = StatusCode(408, 429, 500, 502, 503, 504).Or(TransientErr)

// TransientErr classifies a response as retryable if its error is
// transient according to transient.Categorize.
var TransientErr ClassifierFunc = transientErr

// Never is a classifier that never allows a retry.
var Never ClassifierFunc = func(_ *request.Response) bool { return false }

// Retryable returns true if resp may be retried.
func (f ClassifierFunc) Retryable(resp *request.Response) bool {
	return f(resp)
}

// And composes two classifiers into one which returns true only if both
// return true. Evaluation short-circuits.
func (f ClassifierFunc) And(g ClassifierFunc) ClassifierFunc {
	return func(resp *request.Response) bool {
		return f(resp) && g(resp)
	}
}

// Or composes two classifiers into one which returns true if either
// returns true. Evaluation short-circuits.
func (f ClassifierFunc) Or(g ClassifierFunc) ClassifierFunc {
	return func(resp *request.Response) bool {
		return f(resp) || g(resp)
	}
}

// StatusCode constructs a classifier which returns true if the response
// status code is one of ss.
func StatusCode(ss ...int) ClassifierFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(resp *request.Response) bool {
		for _, s := range ss2 {
			if resp.StatusCode == s {
				return true
			}
		}
		return false
	}
}

func transientErr(resp *request.Response) bool {
	return transient.Categorize(resp.Err) != transient.Not
}
