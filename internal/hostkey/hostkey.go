// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package hostkey normalizes host names into map keys.
package hostkey

import (
	"strings"

	"golang.org/x/net/idna"
)

// Of returns the canonical key for host: lower case, with any port and
// IPv6 brackets removed, and internationalized names converted to their
// ASCII (punycode) form. Hosts idna rejects are keyed by their lower
// case form.
func Of(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if strings.HasPrefix(h, "[") {
		if i := strings.LastIndex(h, "]"); i > 0 {
			h = h[1:i]
		}
	} else if strings.Count(h, ":") == 1 {
		h = h[:strings.IndexByte(h, ':')]
	}
	if a, err := idna.Lookup.ToASCII(h); err == nil {
		return a
	}
	return h
}
