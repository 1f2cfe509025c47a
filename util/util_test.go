// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		name  string
		input uint32
		want  uint32
	}{
		{name: "zero", input: 0, want: 1},
		{name: "one", input: 1, want: 1},
		{name: "two", input: 2, want: 2},
		{name: "three", input: 3, want: 4},
		{name: "four", input: 4, want: 4},
		{name: "five", input: 5, want: 8},
		{name: "six", input: 6, want: 8},
		{name: "0x370", input: 0x370, want: 0x400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equalf(t, tt.want, NextPowerOfTwo(tt.input),
				"NextPowerOfTwo(%v) = %v, want %v", tt.input, NextPowerOfTwo(tt.input), tt.want)
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := map[string]struct {
		input uint64
		want  bool
	}{
		"zero":      {input: 0, want: false},
		"one":       {input: 1, want: true},
		"eight":     {input: 8, want: true},
		"twelve":    {input: 12, want: false},
		"64k":       {input: 65536, want: true},
		"top bit":   {input: 1 << 63, want: true},
		"all bits":  {input: ^uint64(0), want: false},
		"64k minus": {input: 65535, want: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsPowerOfTwo(tc.input))
		})
	}
}

func TestIsValidString(t *testing.T) {
	assert.True(t, IsValidString("/shmtrace_12_34"))
	assert.False(t, IsValidString(""))
	assert.False(t, IsValidString("a\x00b"))
	assert.False(t, IsValidString("\xff"))
}

func TestAtomicUpdateMaxUint64(t *testing.T) {
	var store atomic.Uint64
	var wg sync.WaitGroup
	for i := range uint64(64) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			AtomicUpdateMaxUint64(&store, i)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(63), store.Load())

	AtomicUpdateMaxUint64(&store, 10)
	assert.Equal(t, uint64(63), store.Load())
}

func TestAddJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for range 100 {
		d := AddJitter(base, 0.2)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
	assert.Equal(t, base, AddJitter(base, 0))
	assert.Equal(t, base, AddJitter(base, 1.5))
}
