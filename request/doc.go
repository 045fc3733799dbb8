// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the value types Request (describes a logical HTTP
request) and Response (describes the outcome of executing one).

A Request is created by the caller and handed to the execution service:

	r, err := request.New("GET", "https://example.com/thing", nil)
	...
	r.MaxRetries = 3
	r.Chunks = true
	token := svc.PerformRequest(ctx, handler, r)

A Request is treated as immutable once dispatched. The only exception is
the URL host rewrite done by the service's resolver before the first
attempt, which is applied to a copy.

A Response is created by the execution engine when response headers first
arrive, and completed in place when the attempt ends. After it has been
delivered to a response handler it must be treated as immutable.
*/
package request
