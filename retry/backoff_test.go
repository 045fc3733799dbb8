// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBackoff(t *testing.T) {
	t.Run("invalid initial", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBackoff(time.Duration(-1), time.Hour)
		}, "negative initial")
		assert.Panics(t, func() {
			NewBackoff(time.Duration(0), time.Hour)
		}, "zero initial")
	})
	t.Run("invalid max", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBackoff(time.Duration(2), time.Duration(1))
		}, "max less than initial")
	})
}

func TestDefaultBackoff(t *testing.T) {
	b := NewDefaultBackoff()
	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, e := range expected {
		assert.Equal(t, e, b.Next(), "draw %d", i)
	}
}

func TestBackoff_Next(t *testing.T) {
	t.Run("non-decreasing and capped", func(t *testing.T) {
		initial, max := 3*time.Millisecond, 1*time.Second
		b := NewBackoff(initial, max)
		assert.Equal(t, initial, b.Next())
		prev := initial
		for i := 0; i < 100; i++ {
			d := b.Next()
			assert.GreaterOrEqual(t, d, prev)
			assert.LessOrEqual(t, d, max)
			prev = d
		}
		assert.Equal(t, max, prev)
	})
	t.Run("initial equals max", func(t *testing.T) {
		b := NewBackoff(time.Second, time.Second)
		for i := 0; i < 5; i++ {
			assert.Equal(t, time.Second, b.Next())
		}
	})
	t.Run("overflow", func(t *testing.T) {
		b := NewBackoff(time.Duration(math.MaxInt64/2+1), time.Duration(math.MaxInt64))
		assert.Equal(t, time.Duration(math.MaxInt64/2+1), b.Next())
		assert.Equal(t, time.Duration(math.MaxInt64), b.Next())
		assert.Equal(t, time.Duration(math.MaxInt64), b.Next())
	})
	t.Run("reset", func(t *testing.T) {
		b := NewBackoff(time.Millisecond, time.Second)
		b.Next()
		b.Next()
		b.Reset()
		assert.Equal(t, time.Millisecond, b.Next())
	})
}
