// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"net/http"
	"sort"

	"github.com/gogama/httpexec"
	"github.com/gogama/httpexec/auth"
	"github.com/gogama/httpexec/logger"
	"github.com/gogama/httpexec/ratelimit"
	"github.com/gogama/httpexec/resolve"
	"github.com/gogama/httpexec/timeout"
	"github.com/gogama/httpexec/transport"

	"github.com/rs/zerolog"
)

// Logger returns a logger built from the log section.
func (c *Config) Logger() zerolog.Logger {
	return logger.New(c.Log.Level, c.Log.Pretty)
}

// TimeoutPolicy returns the per-attempt timeout policy. A zero attempt
// timeout means attempts never time out.
func (c *Config) TimeoutPolicy() timeout.Policy {
	if c.Timeout.Attempt == 0 {
		return timeout.Infinite
	}
	if len(c.Timeout.Escalation) > 0 {
		return timeout.Adaptive(c.Timeout.Attempt, c.Timeout.Escalation...)
	}
	return timeout.Fixed(c.Timeout.Attempt)
}

// Session returns a net/http transport session using client, which
// may be nil.
func (c *Config) Session(client *http.Client) *transport.HTTPSession {
	s := &transport.HTTPSession{
		Client:        client,
		TimeoutPolicy: c.TimeoutPolicy(),
	}
	if c.Cache.Enabled {
		s.Cache = &transport.MemoryCache{MaxEntries: c.Cache.MaxEntries}
	}
	return s
}

// HostResolver returns the host resolution overrides, or nil if there are
// none. Later entries for the same host replace earlier ones.
func (c *Config) HostResolver() resolve.Resolver {
	if len(c.Resolver.Overrides) == 0 {
		return nil
	}
	m := make(map[string][]string, len(c.Resolver.Overrides))
	for _, o := range c.Resolver.Overrides {
		m[o.Host] = o.Addresses
	}
	return resolve.NewStatic(m)
}

// Authorizer returns the configured authorization chain, or nil if
// nothing is configured.
func (c *Config) Authorizer() auth.Authorizer {
	keys := make([]string, 0, len(c.Auth.Headers))
	for k := range c.Auth.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var chain auth.Chain
	for _, k := range keys {
		chain = append(chain, auth.Header(k, c.Auth.Headers[k]))
	}
	if c.Auth.Bearer != "" {
		chain = append(chain, auth.Bearer(auth.StaticToken(c.Auth.Bearer)))
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// Options returns the Service options the configuration describes.
func (c *Config) Options() []httpexec.Option {
	log := c.Logger()
	opts := []httpexec.Option{
		httpexec.WithSession(c.Session(nil)),
		httpexec.WithRateLimiter(ratelimit.New(c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)),
		httpexec.WithBackoff(c.Backoff.Initial, c.Backoff.Max),
		httpexec.WithDefaultRetries(c.Retry.Max),
		httpexec.WithLogger(log),
	}
	if r := c.HostResolver(); r != nil {
		opts = append(opts, httpexec.WithResolver(r))
	}
	if a := c.Authorizer(); a != nil {
		opts = append(opts, httpexec.WithAuthorizer(a))
	}
	if log.GetLevel() <= zerolog.DebugLevel {
		opts = append(opts, httpexec.WithHooks(httpexec.LogHooks(log)))
	}
	return opts
}

// NewService creates a Service from the configuration. Options in opts
// are applied afterwards and take precedence.
func (c *Config) NewService(opts ...httpexec.Option) *httpexec.Service {
	return httpexec.NewService(append(c.Options(), opts...)...)
}
