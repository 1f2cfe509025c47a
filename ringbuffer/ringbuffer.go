// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package ringbuffer implements a single-producer/single-consumer lock-free
// ring of trace events that can live inside a shared memory segment.
//
// The memory layout is
//
//	[capacity]event.Event   slot array
//	writer group            write index, cached read index (one cache line)
//	reader group            read index, cached write index (one cache line)
//
// Both cursors increase monotonically and are never wrapped; the slot for a
// cursor value is selected with a bitmask. The producer is the only writer of
// the write index and of slot contents, the consumer is the only writer of the
// read index. The write index is published after the slot it covers has been
// written, and the read index after the slot has been read, so a side that
// observes the other side's cursor also observes the slot accesses before it.
package ringbuffer // import "go.opentelemetry.io/shmtrace/ringbuffer"

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"go.opentelemetry.io/shmtrace/event"
	"go.opentelemetry.io/shmtrace/util"
)

const (
	// DefaultCapacity is the number of slots of a ring shared with the consumer.
	DefaultCapacity = 65536

	// MinCapacity keeps the cursor groups cache-line aligned behind the slots.
	MinCapacity = cacheLineSize / event.Size

	cacheLineSize = 64
)

var (
	// ErrCapacity is returned for capacities that are not a power of two or
	// below MinCapacity.
	ErrCapacity = errors.New("invalid ring capacity")
	// ErrMemory is returned when the backing memory is too small or misaligned.
	ErrMemory = errors.New("invalid ring memory")
)

// writerGroup is owned by the producer. The consumer only loads writeIndex.
type writerGroup struct {
	writeIndex     atomic.Uint64
	readIndexCache uint64
	_              [cacheLineSize - 16]byte
}

// readerGroup is owned by the consumer. The producer only loads readIndex.
type readerGroup struct {
	readIndex       atomic.Uint64
	writeIndexCache uint64
	_               [cacheLineSize - 16]byte
}

var (
	_ [cacheLineSize]byte = [unsafe.Sizeof(writerGroup{})]byte{}
	_ [cacheLineSize]byte = [unsafe.Sizeof(readerGroup{})]byte{}
)

// Ring is a view of a ring buffer laid out in memory it does not own.
type Ring struct {
	slots    []event.Event
	writer   *writerGroup
	reader   *readerGroup
	capacity uint64
	mask     uint64
}

// Size returns the number of bytes a ring with the given capacity occupies.
func Size(capacity uint64) (int, error) {
	if err := checkCapacity(capacity); err != nil {
		return 0, err
	}
	return int(capacity*event.Size + 2*cacheLineSize), nil
}

func checkCapacity(capacity uint64) error {
	if capacity < MinCapacity || !util.IsPowerOfTwo(capacity) {
		return fmt.Errorf("%w: %d must be a power of two >= %d",
			ErrCapacity, capacity, MinCapacity)
	}
	return nil
}

// New returns a view of the ring stored in mem. The cursors are left as they
// are: the creating side calls Init, an attaching side does not.
func New(mem []byte, capacity uint64) (*Ring, error) {
	size, err := Size(capacity)
	if err != nil {
		return nil, err
	}
	if len(mem) < size {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrMemory, len(mem), size)
	}
	base := unsafe.Pointer(unsafe.SliceData(mem))
	if uintptr(base)%8 != 0 {
		return nil, fmt.Errorf("%w: base address %p is not 8 byte aligned", ErrMemory, base)
	}

	slotBytes := uintptr(capacity * event.Size)
	return &Ring{
		slots:    unsafe.Slice((*event.Event)(base), capacity),
		writer:   (*writerGroup)(unsafe.Add(base, slotBytes)),
		reader:   (*readerGroup)(unsafe.Add(base, slotBytes+cacheLineSize)),
		capacity: capacity,
		mask:     capacity - 1,
	}, nil
}

// Allocate returns an initialized ring backed by process private memory.
func Allocate(capacity uint64) (*Ring, error) {
	size, err := Size(capacity)
	if err != nil {
		return nil, err
	}
	// Back the ring by uint64 words so the base address is suitably aligned.
	words := make([]uint64, size/8)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)
	r, err := New(mem, capacity)
	if err != nil {
		return nil, err
	}
	r.Init()
	return r, nil
}

// Init resets both cursors. It must be called exactly once by the creating
// side before the other side can access the memory.
func (r *Ring) Init() {
	r.writer.writeIndex.Store(0)
	r.writer.readIndexCache = 0
	r.reader.readIndex.Store(0)
	r.reader.writeIndexCache = 0
}

// Capacity returns the number of slots.
func (r *Ring) Capacity() uint64 {
	return r.capacity
}

// WriteIndex returns the number of events pushed so far.
func (r *Ring) WriteIndex() uint64 {
	return r.writer.writeIndex.Load()
}

// ReadIndex returns the number of events consumed so far.
func (r *Ring) ReadIndex() uint64 {
	return r.reader.readIndex.Load()
}

// Len returns the number of events currently stored.
func (r *Ring) Len() uint64 {
	return r.WriteIndex() - r.ReadIndex()
}

// TryPush appends e without blocking. It returns false, leaving the ring
// untouched, if the ring is full. Producer side only.
func (r *Ring) TryPush(e event.Event) bool {
	// Only this side stores writeIndex, so the load cannot race.
	writeIndex := r.writer.writeIndex.Load()
	if writeIndex-r.writer.readIndexCache >= r.capacity {
		r.writer.readIndexCache = r.reader.readIndex.Load()
		if writeIndex-r.writer.readIndexCache >= r.capacity {
			return false
		}
	}
	r.slots[writeIndex&r.mask] = e
	r.writer.writeIndex.Store(writeIndex + 1)
	return true
}

// TryPop removes the oldest event without blocking. Consumer side only.
func (r *Ring) TryPop() (event.Event, bool) {
	readIndex := r.reader.readIndex.Load()
	if readIndex == r.reader.writeIndexCache {
		r.reader.writeIndexCache = r.writer.writeIndex.Load()
		if readIndex == r.reader.writeIndexCache {
			return event.Event{}, false
		}
	}
	e := r.slots[readIndex&r.mask]
	r.reader.readIndex.Store(readIndex + 1)
	return e, true
}

// Read moves up to len(dst) of the oldest events into dst and returns how
// many were moved. The read index is published once for the whole batch.
// Consumer side only.
func (r *Ring) Read(dst []event.Event) int {
	readIndex := r.reader.readIndex.Load()
	available := r.reader.writeIndexCache - readIndex
	if available == 0 {
		r.reader.writeIndexCache = r.writer.writeIndex.Load()
		available = r.reader.writeIndexCache - readIndex
		if available == 0 {
			return 0
		}
	}
	n := min(available, uint64(len(dst)))
	if n == 0 {
		return 0
	}

	start := readIndex & r.mask
	first := copy(dst[:n], r.slots[start:])
	if uint64(first) < n {
		copy(dst[first:n], r.slots)
	}
	r.reader.readIndex.Store(readIndex + n)
	return int(n)
}
