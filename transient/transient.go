// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// A Category is the transience category of an error, as reported by
// Categorize.
//
// Not means a repeated attempt is very unlikely to succeed. Every other
// category means a repeated attempt has some prospect of success.
type Category int

const (
	// Not indicates any non-transient error, including cancellation.
	Not Category = iota
	// Timeout indicates a client-side timeout. The error or one of its
	// wrapped causes has a Timeout method that reports true.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (syscall.ECONNREFUSED). The remote service may be restarting.
	ConnRefused
	// ConnReset indicates the remote host reset a previously active
	// connection (syscall.ECONNRESET or syscall.ECONNABORTED).
	ConnReset
	// Unreachable indicates the network or host could not be reached
	// (syscall.ENETUNREACH or syscall.EHOSTUNREACH), or a DNS lookup
	// failed in a way the resolver reports as temporary.
	Unreachable
	// Truncated indicates the connection closed before a complete
	// response was read (io.ErrUnexpectedEOF).
	Truncated
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"Unreachable",
	"Truncated",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err. A nil error, a
// cancellation, and any error that is not transient all produce Not.
//
// Categorize looks at wrapped causes, not just err itself. It never
// consults a Temporary method except on *net.DNSError, whose
// IsTemporary field has well defined semantics.
func Categorize(err error) Category {
	if err == nil || errors.Is(err, context.Canceled) {
		return Not
	}

	var ht hasTimeout
	if errors.As(err, &ht) && ht.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNABORTED:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		case syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return Unreachable
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return Unreachable
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return Truncated
	}

	return Not
}

type hasTimeout interface {
	Timeout() bool
}
