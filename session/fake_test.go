// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.opentelemetry.io/shmtrace/platform"
)

// fakeSegment is process private memory posing as a shared segment.
type fakeSegment struct {
	name     string
	mem      []byte
	closed   atomic.Bool
	unlinked atomic.Bool
}

func (s *fakeSegment) Name() string  { return s.name }
func (s *fakeSegment) Bytes() []byte { return s.mem }
func (s *fakeSegment) Close() error  { s.closed.Store(true); return nil }
func (s *fakeSegment) Unlink() error { s.unlinked.Store(true); return nil }

// fakeConsumer is a consumer whose liveness the test controls.
type fakeConsumer struct {
	running    atomic.Bool
	checks     atomic.Uint64
	terminated atomic.Bool
	killed     atomic.Bool
	// ignoreTerm keeps the consumer running on Terminate.
	ignoreTerm bool
}

func (c *fakeConsumer) Pid() int { return 4242 }

func (c *fakeConsumer) Running() bool {
	c.checks.Add(1)
	return c.running.Load()
}

func (c *fakeConsumer) Terminate() error {
	c.terminated.Store(true)
	if !c.ignoreTerm {
		c.running.Store(false)
	}
	return nil
}

func (c *fakeConsumer) Kill() error {
	c.killed.Store(true)
	c.running.Store(false)
	return nil
}

type fakePlatform struct {
	mu        sync.Mutex
	n         int
	segments  []*fakeSegment
	consumer  *fakeConsumer
	spawnPath string
	spawnArgs []string
	createErr error
	spawnErr  error
}

var _ platform.Platform = (*fakePlatform)(nil)

func newFakePlatform() *fakePlatform {
	c := &fakeConsumer{}
	c.running.Store(true)
	return &fakePlatform{consumer: c}
}

func (p *fakePlatform) SegmentName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return fmt.Sprintf("/fake_%d", p.n)
}

func (p *fakePlatform) CreateSegment(name string, size int) (platform.Segment, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	words := make([]uint64, (size+7)/8)
	seg := &fakeSegment{
		name: name,
		mem:  unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size),
	}
	p.mu.Lock()
	p.segments = append(p.segments, seg)
	p.mu.Unlock()
	return seg, nil
}

func (p *fakePlatform) OpenSegment(name string, size int) (platform.Segment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, seg := range p.segments {
		if seg.name == name {
			if len(seg.mem) != size {
				return nil, errors.New("size mismatch")
			}
			return seg, nil
		}
	}
	return nil, errors.New("no such segment")
}

func (p *fakePlatform) SpawnConsumer(path string, args []string) (platform.Consumer, error) {
	if p.spawnErr != nil {
		return nil, p.spawnErr
	}
	p.spawnPath = path
	p.spawnArgs = args
	return p.consumer, nil
}
