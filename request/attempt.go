// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

// An Attempt identifies one physical attempt within the retry sequence
// of a logical request.
type Attempt struct {
	// Number is the zero-based attempt number. The initial attempt is
	// number zero, the first retry is number one, and so on.
	Number int

	// Timeouts is the number of earlier attempts in the sequence that
	// ended in a timeout.
	Timeouts int

	// PreviousTimedOut indicates whether the immediately preceding
	// attempt timed out.
	PreviousTimedOut bool
}
