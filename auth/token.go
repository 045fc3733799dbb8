// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// A TokenSource supplies bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// A StaticToken is a TokenSource that always returns itself.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// A FetchFunc obtains a fresh token and the time it expires.
type FetchFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// A CachingTokenSource caches the token returned by a FetchFunc until
// shortly before it expires. Concurrent callers that find the cache
// stale share a single fetch.
type CachingTokenSource struct {
	fetch FetchFunc
	skew  time.Duration
	now   func() time.Time

	group  singleflight.Group
	lock   sync.Mutex
	token  string
	expiry time.Time
}

// NewCachingTokenSource returns a CachingTokenSource that refreshes
// skew before expiry.
func NewCachingTokenSource(fetch FetchFunc, skew time.Duration) *CachingTokenSource {
	if fetch == nil {
		panic("httpexec/auth: nil fetch func")
	}
	return &CachingTokenSource{
		fetch: fetch,
		skew:  skew,
		now:   time.Now,
	}
}

// Token implements TokenSource.
func (s *CachingTokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.cached(); ok {
		return tok, nil
	}
	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		if tok, ok := s.cached(); ok {
			return tok, nil
		}
		tok, expiry, err := s.fetch(ctx)
		if err != nil {
			return "", err
		}
		s.lock.Lock()
		s.token, s.expiry = tok, expiry
		s.lock.Unlock()
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next call to Token fetches.
func (s *CachingTokenSource) Invalidate() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.token = ""
	s.expiry = time.Time{}
}

func (s *CachingTokenSource) cached() (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.token == "" || !s.now().Add(s.skew).Before(s.expiry) {
		return "", false
	}
	return s.token, true
}
