// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package transient categorizes transport errors by how likely a repeated
attempt is to succeed.

The retry classifiers in package retry use Categorize to decide whether a
failed attempt may be retried. Cancellation is never transient: an
attempt aborted through a cancellation token reports Not.
*/
package transient
