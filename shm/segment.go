// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package shm creates and maps the named shared memory segment that holds
// the event ring shared between a producer and its consumer process.
//
// The producer creates the segment under a name from GenerateName and passes
// the name to the consumer, which maps the same segment with Open. Both sides
// must agree on the exact size.
package shm // import "go.opentelemetry.io/shmtrace/shm"

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/shmtrace/util"
)

var (
	// ErrSize is returned when the requested size is invalid or does not
	// match the size of an existing segment.
	ErrSize = errors.New("shared memory size mismatch")
	// ErrName is returned for names the platform cannot use.
	ErrName = errors.New("invalid shared memory name")
	// ErrNotSupported is returned on platforms without a shared memory backend.
	ErrNotSupported = errors.New("shared memory is not supported on this platform")
)

// Segment is a mapped shared memory region.
type Segment struct {
	name    string
	mem     []byte
	created bool
	sys     sysSegment
}

// Name returns the name other processes use to open the segment.
func (s *Segment) Name() string {
	return s.name
}

// Bytes returns the mapped memory. It must not be used after Close.
func (s *Segment) Bytes() []byte {
	return s.mem
}

// Size returns the size of the mapping in bytes.
func (s *Segment) Size() int {
	return len(s.mem)
}

// Created reports whether this process created the segment.
func (s *Segment) Created() bool {
	return s.created
}

// GenerateName returns a segment name built from the process ID and the
// current time. It is unique among producers running on the same host at
// the same time, not across hosts or reboots.
func GenerateName() string {
	return fmt.Sprintf("%sshmtrace_%d_%d", namePrefix, os.Getpid(), time.Now().UnixNano())
}

func checkArgs(name string, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d", ErrSize, size)
	}
	if !util.IsValidString(name) {
		return fmt.Errorf("%w: %q", ErrName, name)
	}
	return checkName(name)
}
