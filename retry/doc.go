// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package retry provides the two retry building blocks used by the
execution engine: a Backoff generator producing the delays between
successive retries, and a Classifier deciding whether a failed response
may be retried at all.

How many retries are allowed is not a classifier concern. Each request
carries its own maximum in request.Request.MaxRetries.

Classifiers compose like predicates:

	c := retry.StatusCode(429, 503).Or(retry.TransientErr)
*/
package retry
