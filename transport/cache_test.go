// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLifetime(t *testing.T) {
	testCases := []struct {
		values   []string
		expected time.Duration
	}{
		{nil, 0},
		{[]string{"max-age=60"}, time.Minute},
		{[]string{"public, max-age=5"}, 5 * time.Second},
		{[]string{"public", "max-age=5"}, 5 * time.Second},
		{[]string{"max-age=60, no-store"}, 0},
		{[]string{"private, max-age=60"}, 0},
		{[]string{"max-age=abc"}, 0},
		{[]string{"max-age=0"}, 0},
	}
	for i, testCase := range testCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			h := http.Header{}
			for _, v := range testCase.values {
				h.Add("Cache-Control", v)
			}
			assert.Equal(t, testCase.expected, Lifetime(h))
		})
	}
}

func TestMemoryCache(t *testing.T) {
	now := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	entry := func(offset time.Duration) *CachedResponse {
		return &CachedResponse{StatusCode: 200, StoredAt: now.Add(offset), Expires: now.Add(offset + time.Minute)}
	}

	t.Run("expiry", func(t *testing.T) {
		var c MemoryCache
		assert.Nil(t, c.Get("k", now))
		c.Put("k", entry(0))
		assert.NotNil(t, c.Get("k", now.Add(59*time.Second)))
		assert.Nil(t, c.Get("k", now.Add(time.Minute)))
		assert.Equal(t, 0, c.Len())
	})
	t.Run("capacity", func(t *testing.T) {
		c := MemoryCache{MaxEntries: 2}
		c.Put("a", entry(0))
		c.Put("b", entry(time.Second))
		c.Put("c", entry(2*time.Second))
		assert.Equal(t, 2, c.Len())
		assert.Nil(t, c.Get("a", now.Add(2*time.Second)))
		assert.NotNil(t, c.Get("b", now.Add(2*time.Second)))
		assert.NotNil(t, c.Get("c", now.Add(2*time.Second)))
	})
}
