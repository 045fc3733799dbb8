// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package resolve overrides the address a request's host resolves to.
//
// The execution service asks its Resolver for addresses before a request
// is authorized, and rewrites the request URL to the first address
// returned. The original host is kept as the request's Host so that the
// server still sees the name the caller asked for.
package resolve

import (
	"net"
	"strings"

	"github.com/gogama/httpexec/internal/hostkey"
	"github.com/gogama/httpexec/request"
)

// A Resolver returns override addresses for a host, in order of
// preference, or nil if the host has no override.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Resolver interface {
	AddressesForHost(host string) []string
}

// The ResolverFunc type is an adapter to allow the use of ordinary
// functions as resolvers.
type ResolverFunc func(host string) []string

// AddressesForHost calls f(host).
func (f ResolverFunc) AddressesForHost(host string) []string {
	return f(host)
}

// A Static resolver looks hosts up in a fixed table. Use NewStatic to
// build one so that keys are normalized.
type Static map[string][]string

// NewStatic builds a Static resolver from overrides, normalizing host
// names so that lookups ignore case, ports and IDN encoding. Hosts with
// no addresses are skipped.
func NewStatic(overrides map[string][]string) Static {
	s := make(Static, len(overrides))
	for host, addrs := range overrides {
		if len(addrs) == 0 {
			continue
		}
		s[hostkey.Of(host)] = append([]string(nil), addrs...)
	}
	return s
}

// AddressesForHost implements Resolver.
func (s Static) AddressesForHost(host string) []string {
	return s[hostkey.Of(host)]
}

// Rewrite returns a copy of r whose URL host is replaced by the first
// override address res returns for it, keeping any port. If r.Host is
// empty it is set to the original URL host. If res is nil or has no
// override, the copy is unchanged.
func Rewrite(res Resolver, r *request.Request) *request.Request {
	r2 := r.Clone()
	if res == nil || r2.URL == nil {
		return r2
	}
	addrs := res.AddressesForHost(r2.URL.Hostname())
	if len(addrs) == 0 || addrs[0] == "" {
		return r2
	}
	addr := strings.TrimSuffix(strings.TrimPrefix(addrs[0], "["), "]")
	if r2.Host == "" {
		r2.Host = r2.URL.Host
	}
	if port := r2.URL.Port(); port != "" {
		r2.URL.Host = net.JoinHostPort(addr, port)
	} else if strings.Contains(addr, ":") {
		r2.URL.Host = "[" + addr + "]"
	} else {
		r2.URL.Host = addr
	}
	return r2
}
