// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package event defines the fixed-width binary record that carries one trace
// event from an instrumented process to its consumer.
//
// A record is two 64-bit words. The first word holds the event kind in its
// top 4 bits and the nanoseconds elapsed since the session's clock origin in
// the remaining 60 bits. The second word is a kind-dependent payload: a method
// identifier for Call/Return, a logical thread identifier for the thread
// lifecycle kinds and zero for the GC kinds.
package event // import "go.opentelemetry.io/shmtrace/event"

import (
	"fmt"
	"unsafe"
)

// Kind identifies what happened in the instrumented process.
type Kind uint8

const (
	KindCall Kind = iota
	KindReturn
	KindGCStart
	KindGCEnd
	KindThreadStart
	KindThreadReady
	KindThreadSuspended
	KindThreadResume
	KindThreadExit

	// numKinds must stay the last entry.
	numKinds
)

const (
	// Size is the size in bytes of one encoded Event.
	Size = 16

	kindShift = 60

	// KindMask selects the kind bits of the first record word.
	KindMask uint64 = 0xF << kindShift
	// TimestampMask selects the timestamp delta bits of the first record word.
	TimestampMask uint64 = 1<<kindShift - 1
)

// Compile time check that the in-memory layout is the wire layout.
var _ [Size]byte = [unsafe.Sizeof(Event{})]byte{}

var kindNames = [numKinds]string{
	KindCall:            "call",
	KindReturn:          "return",
	KindGCStart:         "gc-start",
	KindGCEnd:           "gc-end",
	KindThreadStart:     "thread-start",
	KindThreadReady:     "thread-ready",
	KindThreadSuspended: "thread-suspended",
	KindThreadResume:    "thread-resume",
	KindThreadExit:      "thread-exit",
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k < numKinds
}

// IsThreadLifecycle reports whether the payload of k is a logical thread ID.
func (k Kind) IsThreadLifecycle() bool {
	return k >= KindThreadStart && k <= KindThreadExit
}

// Event is one encoded trace record. Its memory layout is the binary protocol
// shared with the consumer and must not change.
type Event struct {
	// Header carries the kind in the top 4 bits and the timestamp delta below.
	Header uint64
	// Payload is the kind-dependent second word.
	Payload uint64
}

// Kind returns the kind stored in the top 4 bits of the header.
func (e Event) Kind() Kind {
	return Kind(e.Header >> kindShift)
}

// TimestampDelta returns the nanoseconds between the clock origin and the event.
func (e Event) TimestampDelta() uint64 {
	return e.Header & TimestampMask
}

// MethodID returns the payload interpreted as a method identifier.
func (e Event) MethodID() uint64 {
	return e.Payload
}

// ThreadID returns the payload interpreted as a logical thread identifier.
func (e Event) ThreadID() uint32 {
	return uint32(e.Payload)
}

func (e Event) String() string {
	switch k := e.Kind(); {
	case k == KindCall || k == KindReturn:
		return fmt.Sprintf("%s method=%d t=%d", k, e.Payload, e.TimestampDelta())
	case k.IsThreadLifecycle():
		return fmt.Sprintf("%s thread=%d t=%d", k, e.Payload, e.TimestampDelta())
	default:
		return fmt.Sprintf("%s t=%d", k, e.TimestampDelta())
	}
}

// Decode splits e into its three fields.
func Decode(e Event) (kind Kind, delta, payload uint64) {
	return e.Kind(), e.TimestampDelta(), e.Payload
}

// Make assembles a record from already measured fields. Bits of delta that
// overlap the kind are discarded.
func Make(kind Kind, delta, payload uint64) Event {
	return Event{
		Header:  uint64(kind)<<kindShift | delta&TimestampMask,
		Payload: payload,
	}
}
