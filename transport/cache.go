// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries is the capacity of a MemoryCache whose MaxEntries
// is zero.
const DefaultMaxEntries = 256

// A Cache is the platform response cache consulted by HTTPSession.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Cache interface {
	// Get returns the entry stored under key, or nil if there is none
	// or it expired before now.
	Get(key string, now time.Time) *CachedResponse
	// Put stores entry under key.
	Put(key string, entry *CachedResponse)
}

// A MemoryCache is an in-memory Cache. Its zero value is ready to use.
type MemoryCache struct {
	// MaxEntries bounds the number of stored entries. If zero,
	// DefaultMaxEntries is used.
	MaxEntries int

	lock    sync.Mutex
	entries map[string]*CachedResponse
}

// Get implements Cache.
func (c *MemoryCache) Get(key string, now time.Time) *CachedResponse {
	c.lock.Lock()
	defer c.lock.Unlock()
	e := c.entries[key]
	if e == nil {
		return nil
	}
	if !now.Before(e.Expires) {
		delete(c.entries, key)
		return nil
	}
	return e
}

// Put implements Cache.
func (c *MemoryCache) Put(key string, entry *CachedResponse) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*CachedResponse)
	}
	max := c.MaxEntries
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= max {
		c.evict(entry.StoredAt)
	}
	c.entries[key] = entry
}

// Len returns the number of stored entries, including expired ones not
// yet evicted.
func (c *MemoryCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if !now.Before(e.Expires) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.StoredAt.Before(oldest) {
			oldestKey, oldest = k, e.StoredAt
		}
	}
	max := c.MaxEntries
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if len(c.entries) >= max && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Lifetime returns how long a response with header h may be cached,
// according to its Cache-Control max-age directive. It returns zero
// if the response is not cacheable.
func Lifetime(h http.Header) time.Duration {
	var maxAge time.Duration
	for _, v := range h.Values("Cache-Control") {
		for _, d := range strings.Split(v, ",") {
			d = strings.ToLower(strings.TrimSpace(d))
			switch {
			case d == "no-store" || d == "no-cache" || d == "private":
				return 0
			case strings.HasPrefix(d, "max-age="):
				secs, err := strconv.ParseInt(strings.Trim(d[len("max-age="):], `"`), 10, 64)
				if err != nil || secs <= 0 {
					return 0
				}
				maxAge = time.Duration(secs) * time.Second
			}
		}
	}
	return maxAge
}

func cacheKey(method, url string) string {
	return method + " " + url
}
