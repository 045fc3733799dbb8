// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads layered Service configuration from defaults, an
// optional YAML file and HTTPEXEC_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load. A
// double underscore separates key levels, so HTTPEXEC_RATELIMIT__BURST
// sets ratelimit.burst.
const EnvPrefix = "HTTPEXEC_"

// ErrInvalid is wrapped by errors reporting a configuration that failed
// validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete Service configuration.
type Config struct {
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Backoff   BackoffConfig   `koanf:"backoff"`
	Retry     RetryConfig     `koanf:"retry"`
	Timeout   TimeoutConfig   `koanf:"timeout"`
	Cache     CacheConfig     `koanf:"cache"`
	Resolver  ResolverConfig  `koanf:"resolver"`
	Auth      AuthConfig      `koanf:"auth"`
	Log       LogConfig       `koanf:"log"`
}

// RateLimitConfig configures the per-host rate limiter. A zero rate
// disables the ceiling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requestspersecond" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=1"`
}

// BackoffConfig configures the retry backoff generator.
type BackoffConfig struct {
	Initial time.Duration `koanf:"initial" validate:"gt=0"`
	Max     time.Duration `koanf:"max" validate:"gtefield=Initial"`
}

// RetryConfig configures retries.
type RetryConfig struct {
	// Max is the maximum retry count used by the convenience methods
	// and the command line tool.
	Max int `koanf:"max" validate:"gte=0,lte=100"`
}

// TimeoutConfig configures per-attempt timeouts. When Escalation is
// not empty, the timeout after successive timed out attempts is taken
// from it in order.
type TimeoutConfig struct {
	Attempt    time.Duration   `koanf:"attempt" validate:"gte=0"`
	Escalation []time.Duration `koanf:"escalation" validate:"dive,gt=0"`
}

// CacheConfig configures the platform cache of the net/http session.
type CacheConfig struct {
	Enabled    bool `koanf:"enabled"`
	MaxEntries int  `koanf:"maxentries" validate:"gte=0"`
}

// ResolverConfig configures host resolution overrides. Overrides are a
// list rather than a map because host names contain the key delimiter.
type ResolverConfig struct {
	Overrides []Override `koanf:"overrides" validate:"dive"`
}

// An Override replaces the addresses of one host.
type Override struct {
	Host      string   `koanf:"host" validate:"required"`
	Addresses []string `koanf:"addresses" validate:"min=1,dive,required"`
}

// AuthConfig configures the authorization chain. Headers are applied
// before the bearer token.
type AuthConfig struct {
	Headers map[string]string `koanf:"headers" validate:"dive,keys,required,endkeys"`
	Bearer  string            `koanf:"bearer"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}

func defaults() map[string]any {
	return map[string]any{
		"ratelimit.requestspersecond": 10.0,
		"ratelimit.burst":             1,
		"backoff.initial":             "1s",
		"backoff.max":                 "60s",
		"retry.max":                   3,
		"timeout.attempt":             "30s",
		"cache.enabled":               true,
		"cache.maxentries":            256,
		"log.level":                   "info",
		"log.pretty":                  false,
	}
}

// Load loads configuration with the following priority, highest first:
// environment variables, the YAML file at path, and defaults. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps HTTPEXEC_A__B to a.b.
func envKey(k, v string) (string, any) {
	k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	return strings.ReplaceAll(k, "__", "."), v
}
