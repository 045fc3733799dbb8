// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package logger builds the zerolog loggers used by the execution
// service and the command line tool.
package logger

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stdout at the named level. Unknown
// levels fall back to info. If pretty is true, output is formatted for
// humans instead of as JSON.
func New(level string, pretty bool) zerolog.Logger {
	return NewTo(os.Stdout, level, pretty)
}

// NewTo is like New but writes to w.
func NewTo(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	l := zerolog.New(w).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return l.Level(lvl)
}

const redacted = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
}

// Headers returns a zerolog dictionary of h with credential-bearing
// values redacted, suitable for Dict.
func Headers(h http.Header) *zerolog.Event {
	d := zerolog.Dict()
	for k, vs := range h {
		if sensitiveHeaders[http.CanonicalHeaderKey(k)] {
			d = d.Str(k, redacted)
			continue
		}
		d = d.Strs(k, vs)
	}
	return d
}
