// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform bundles the OS dependent capabilities a producer session
// needs: naming, creating and opening a shared memory region, spawning the
// consumer process and querying its liveness.
package platform // import "go.opentelemetry.io/shmtrace/platform"

import (
	"go.opentelemetry.io/shmtrace/shm"
	"go.opentelemetry.io/shmtrace/supervisor"
)

// Segment is a mapped named shared memory region.
type Segment interface {
	// Name returns the name the region is opened by.
	Name() string
	// Bytes returns the mapped memory.
	Bytes() []byte
	// Close unmaps the region.
	Close() error
	// Unlink removes the name so no further process can open the region.
	Unlink() error
}

// Consumer is a supervised consumer process.
type Consumer interface {
	Pid() int
	// Running reports, without blocking, whether the consumer has not exited.
	Running() bool
	// Terminate asks the consumer to exit.
	Terminate() error
	// Kill stops the consumer immediately.
	Kill() error
}

// Platform is the set of OS capabilities used by a producer session.
type Platform interface {
	// SegmentName returns a fresh region name for this process.
	SegmentName() string
	// CreateSegment creates and maps a new region. It fails if the name
	// exists.
	CreateSegment(name string, size int) (Segment, error)
	// OpenSegment maps an existing region of exactly size bytes.
	OpenSegment(name string, size int) (Segment, error)
	// SpawnConsumer starts path with args.
	SpawnConsumer(path string, args []string) (Consumer, error)
}

// Compile time checks for interface adherence
var (
	_ Segment  = (*shm.Segment)(nil)
	_ Consumer = (*supervisor.Process)(nil)
	_ Platform = native{}
)

type native struct{}

// Native returns the Platform implemented by the shm and supervisor
// packages for the running OS.
func Native() Platform {
	return native{}
}

func (native) SegmentName() string {
	return shm.GenerateName()
}

func (native) CreateSegment(name string, size int) (Segment, error) {
	seg, err := shm.Create(name, size)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func (native) OpenSegment(name string, size int) (Segment, error) {
	seg, err := shm.Open(name, size)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func (native) SpawnConsumer(path string, args []string) (Consumer, error) {
	proc, err := supervisor.Spawn(path, args)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
