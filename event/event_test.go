// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a clock that advances by step on every reading.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestEncodeDecodeAllKinds(t *testing.T) {
	base := time.Unix(1000, 0)
	payloads := []uint64{0, 1, 42, math.MaxUint32, math.MaxUint64}

	for k := KindCall; k < numKinds; k++ {
		t.Run(k.String(), func(t *testing.T) {
			o := NewOriginAt(base, fakeClock(base, time.Microsecond))
			for _, payload := range payloads {
				e := Encode(o, k, payload)
				kind, _, p := Decode(e)
				assert.Equal(t, k, kind)
				assert.Equal(t, payload, p)
			}
		})
	}
}

func TestKindHelpers(t *testing.T) {
	base := time.Unix(1000, 0)
	o := NewOriginAt(base, func() time.Time { return base.Add(5 * time.Nanosecond) })

	tests := map[string]struct {
		event   Event
		kind    Kind
		payload uint64
	}{
		"call":             {event: Call(o, 7), kind: KindCall, payload: 7},
		"return":           {event: Return(o, 7), kind: KindReturn, payload: 7},
		"gc start":         {event: GCStart(o), kind: KindGCStart},
		"gc end":           {event: GCEnd(o), kind: KindGCEnd},
		"thread start":     {event: ThreadStart(o, 3), kind: KindThreadStart, payload: 3},
		"thread ready":     {event: ThreadReady(o, 3), kind: KindThreadReady, payload: 3},
		"thread suspended": {event: ThreadSuspended(o, 3), kind: KindThreadSuspended, payload: 3},
		"thread resume":    {event: ThreadResume(o, 3), kind: KindThreadResume, payload: 3},
		"thread exit":      {event: ThreadExit(o, 3), kind: KindThreadExit, payload: 3},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.event.Kind())
			assert.Equal(t, tc.payload, tc.event.Payload)
			assert.Equal(t, uint64(5), tc.event.TimestampDelta())
		})
	}
}

func TestTimestampMonotonic(t *testing.T) {
	base := time.Unix(1000, 0)
	o := NewOriginAt(base, fakeClock(base, 3*time.Nanosecond))

	var prev uint64
	for i := range 1000 {
		d := Call(o, uint64(i)).TimestampDelta()
		require.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestRealClockMonotonic(t *testing.T) {
	o := NewOrigin()
	var prev uint64
	for range 1000 {
		d := GCStart(o).TimestampDelta()
		require.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestClockRegressionKeepsKind(t *testing.T) {
	base := time.Unix(1000, 0)
	o := NewOriginAt(base, func() time.Time { return base.Add(-time.Nanosecond) })

	e := ThreadExit(o, 9)
	assert.Equal(t, KindThreadExit, e.Kind())
	assert.Equal(t, uint64(9), e.Payload)
	assert.Equal(t, TimestampMask, e.TimestampDelta())
}

func TestWireLayout(t *testing.T) {
	e := Make(KindThreadResume, 0x123, 0xabcdef)
	assert.Equal(t, uint64(0x7000000000000123), e.Header)
	assert.Equal(t, uint64(0xabcdef), e.Payload)
	assert.Equal(t, "thread-resume thread=11259375 t=291", e.String())
	assert.Equal(t, "unknown(12)", Kind(12).String())
	assert.False(t, Kind(12).Valid())
}
