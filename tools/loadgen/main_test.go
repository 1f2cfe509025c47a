// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/shmtrace/ringbuffer"
	"go.opentelemetry.io/shmtrace/session"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(ringbuffer.DefaultCapacity), opts.capacity)
	assert.Equal(t, "shmtrace", opts.consumer)
	assert.Equal(t, 5*time.Second, opts.duration)
	assert.Equal(t, session.DefaultLivenessCheckEvery, opts.livenessCheckEvery)
	assert.Equal(t, 4, opts.units)
	assert.False(t, opts.verbose)
}

func TestParseArgsCapacity(t *testing.T) {
	tests := map[string]struct {
		arg  string
		want uint64
	}{
		"power of two":   {arg: "-capacity=1024", want: 1024},
		"rounded up":     {arg: "-capacity=1000", want: 1024},
		"just above pow": {arg: "-capacity=65537", want: 131072},
		"small":          {arg: "-capacity=3", want: 4},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			opts, err := parseArgs([]string{tc.arg})
			require.NoError(t, err)
			assert.Equal(t, tc.want, opts.capacity)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := map[string][]string{
		"zero capacity":  {"-capacity=0"},
		"zero units":     {"-units=0"},
		"negative units": {"-units=-2"},
		"zero methods":   {"-methods=0"},
		"zero depth":     {"-depth=0"},
		"unknown flag":   {"-nope"},
		"bad duration":   {"-duration=forever"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseArgs(args)
			require.Error(t, err)
		})
	}
}

func TestParseArgsEnv(t *testing.T) {
	t.Setenv("SHMTRACE_LOADGEN_UNITS", "9")
	t.Setenv("SHMTRACE_LOADGEN_RECORD", "/tmp/load.shmtrc")

	opts, err := parseArgs([]string{"-consumer", "/opt/shmtrace"})
	require.NoError(t, err)
	assert.Equal(t, 9, opts.units)
	assert.Equal(t, "/tmp/load.shmtrc", opts.record)
	assert.Equal(t, "/opt/shmtrace", opts.consumer)
}
