// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package event // import "go.opentelemetry.io/shmtrace/event"

import "time"

// Origin is the reference point all timestamp deltas of a session are
// measured against. It is established once and never changes.
type Origin struct {
	base time.Time
	now  func() time.Time
}

// NewOrigin returns an Origin anchored at the current clock reading.
func NewOrigin() *Origin {
	return NewOriginAt(time.Now(), time.Now)
}

// NewOriginAt returns an Origin anchored at base that reads the current
// time from now.
func NewOriginAt(base time.Time, now func() time.Time) *Origin {
	return &Origin{base: base, now: now}
}

// Base returns the absolute time the origin is anchored at.
func (o *Origin) Base() time.Time {
	return o.base
}

// Delta returns the nanoseconds elapsed since the origin. A clock reading
// before the origin wraps around to a very large value.
func (o *Origin) Delta() uint64 {
	return uint64(o.now().Sub(o.base).Nanoseconds()) & TimestampMask
}

// Encode measures the clock and builds the record for kind and payload.
// Each call reads the clock, so it must be made exactly once per event.
func Encode(o *Origin, kind Kind, payload uint64) Event {
	return Make(kind, o.Delta(), payload)
}

// Call encodes entry into the method identified by methodID.
func Call(o *Origin, methodID uint64) Event {
	return Encode(o, KindCall, methodID)
}

// Return encodes exit from the method identified by methodID.
func Return(o *Origin, methodID uint64) Event {
	return Encode(o, KindReturn, methodID)
}

// GCStart encodes the beginning of a garbage collection phase.
func GCStart(o *Origin) Event {
	return Encode(o, KindGCStart, 0)
}

// GCEnd encodes the end of a garbage collection phase.
func GCEnd(o *Origin) Event {
	return Encode(o, KindGCEnd, 0)
}

// ThreadStart encodes the creation of a logical thread.
func ThreadStart(o *Origin, threadID uint32) Event {
	return Encode(o, KindThreadStart, uint64(threadID))
}

// ThreadReady encodes a logical thread becoming runnable.
func ThreadReady(o *Origin, threadID uint32) Event {
	return Encode(o, KindThreadReady, uint64(threadID))
}

// ThreadSuspended encodes a logical thread giving up its execution slot.
func ThreadSuspended(o *Origin, threadID uint32) Event {
	return Encode(o, KindThreadSuspended, uint64(threadID))
}

// ThreadResume encodes a logical thread being scheduled again.
func ThreadResume(o *Origin, threadID uint32) Event {
	return Encode(o, KindThreadResume, uint64(threadID))
}

// ThreadExit encodes the termination of a logical thread.
func ThreadExit(o *Origin, threadID uint32) Event {
	return Encode(o, KindThreadExit, uint64(threadID))
}
