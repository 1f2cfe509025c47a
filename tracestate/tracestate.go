// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracestate rebuilds per thread call stacks from a stream of
// events and aggregates call counts and inclusive time per method and per
// distinct call stack.
package tracestate // import "go.opentelemetry.io/shmtrace/tracestate"

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	lru "github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"

	"go.opentelemetry.io/shmtrace/event"
)

// DefaultStackCacheSize is the default number of distinct call stacks whose
// aggregates are kept.
const DefaultStackCacheSize = 16384

// StackHash identifies a call stack by the method IDs from its root to its
// leaf.
type StackHash uint64

// Hash32 returns a 32 bit hash of the StackHash.
func (h StackHash) Hash32() uint32 {
	return uint32(h)
}

// hashFrame extends the hash of a parent stack by one method.
func hashFrame(parent StackHash, method uint64) StackHash {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(parent))
	binary.LittleEndian.PutUint64(buf[8:], method)
	return StackHash(xxh3.Hash(buf[:]))
}

// MethodStats aggregates all invocations of one method.
type MethodStats struct {
	// Calls is the number of Call events.
	Calls uint64
	// InclusiveNs is the time between Call and matching Return of all
	// completed invocations.
	InclusiveNs uint64
}

// StackStats aggregates completed invocations of one call stack.
type StackStats struct {
	Hash StackHash
	// Path holds the method IDs from the root to the leaf.
	Path        []uint64
	Calls       uint64
	InclusiveNs uint64
}

// Stats are the event counters of a State.
type Stats struct {
	Events         uint64
	Orphaned       uint64
	Invalid        uint64
	ThreadsStarted uint64
	ThreadsReady   uint64
	ThreadsExited  uint64
	GCs            uint64
	GCNs           uint64
	StackCacheHit  uint64
	StackCacheMiss uint64
	StacksEvicted  uint64
	// Threads is the number of threads with a call stack.
	Threads int
}

type frame struct {
	method uint64
	start  uint64
	hash   StackHash
}

type thread struct {
	id     uint32
	frames []frame
}

// State is the reconstructed state of a traced program. It is safe for
// concurrent use.
type State struct {
	mu sync.Mutex

	threads map[uint32]*thread
	// current is the running thread, nil while none is.
	current *thread

	inGC    bool
	gcStart uint64

	methods map[uint64]*MethodStats
	stacks  *lru.LRU[StackHash, *StackStats]

	stats Stats
}

// New returns a State in which thread 0 is running.
func New(stackCacheSize uint32) (*State, error) {
	if stackCacheSize == 0 {
		stackCacheSize = DefaultStackCacheSize
	}
	stacks, err := lru.New[StackHash, *StackStats](stackCacheSize, StackHash.Hash32)
	if err != nil {
		return nil, fmt.Errorf("failed to create stack cache: %w", err)
	}

	s := &State{
		threads: make(map[uint32]*thread),
		methods: make(map[uint64]*MethodStats),
		stacks:  stacks,
	}
	stacks.SetOnEvict(func(StackHash, *StackStats) {
		s.stats.StacksEvicted++
	})
	s.current = s.thread(0)
	return s, nil
}

// thread returns the thread with the given ID, creating it on first sight.
func (s *State) thread(id uint32) *thread {
	t, ok := s.threads[id]
	if !ok {
		t = &thread{id: id}
		s.threads[id] = t
	}
	return t
}

// Process applies a batch of events in order.
func (s *State) Process(events []event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.apply(e)
	}
}

func (s *State) apply(e event.Event) {
	s.stats.Events++
	kind, ts, payload := event.Decode(e)

	switch kind {
	case event.KindCall:
		if s.current == nil {
			s.stats.Orphaned++
			return
		}
		s.call(s.current, payload, ts)
	case event.KindReturn:
		if s.current == nil {
			s.stats.Orphaned++
			return
		}
		s.ret(s.current, payload, ts)
	case event.KindGCStart:
		s.inGC = true
		s.gcStart = ts
	case event.KindGCEnd:
		if s.inGC {
			s.inGC = false
			s.stats.GCs++
			s.stats.GCNs += elapsed(s.gcStart, ts)
		}
	case event.KindThreadStart:
		s.stats.ThreadsStarted++
	case event.KindThreadReady:
		s.stats.ThreadsReady++
	case event.KindThreadSuspended:
		s.current = nil
	case event.KindThreadResume:
		s.current = s.thread(e.ThreadID())
	case event.KindThreadExit:
		id := e.ThreadID()
		s.stats.ThreadsExited++
		if s.current != nil && s.current.id == id {
			s.current = nil
		}
		delete(s.threads, id)
	default:
		s.stats.Invalid++
	}
}

func (s *State) call(t *thread, method, ts uint64) {
	m, ok := s.methods[method]
	if !ok {
		m = &MethodStats{}
		s.methods[method] = m
	}
	m.Calls++

	var parent StackHash
	if n := len(t.frames); n > 0 {
		parent = t.frames[n-1].hash
	}
	t.frames = append(t.frames, frame{
		method: method,
		start:  ts,
		hash:   hashFrame(parent, method),
	})
}

// ret unwinds the stack of t up to and including the innermost frame of
// method. A method that is not on the stack unwinds it completely.
func (s *State) ret(t *thread, method, ts uint64) {
	for len(t.frames) > 0 {
		top := len(t.frames) - 1
		f := t.frames[top]
		d := elapsed(f.start, ts)

		if m, ok := s.methods[f.method]; ok {
			m.InclusiveNs += d
		}

		st, ok := s.stacks.Get(f.hash)
		if ok {
			s.stats.StackCacheHit++
		} else {
			s.stats.StackCacheMiss++
			st = &StackStats{Hash: f.hash, Path: make([]uint64, top+1)}
			for i := range st.Path {
				st.Path[i] = t.frames[i].method
			}
			s.stacks.Add(f.hash, st)
		}
		st.Calls++
		st.InclusiveNs += d

		t.frames = t.frames[:top]
		if f.method == method {
			return
		}
	}
}

// elapsed returns end-start, or 0 if the clock went backwards.
func elapsed(start, end uint64) uint64 {
	if end < start {
		return 0
	}
	return end - start
}

// Stats returns the event counters.
func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Threads = len(s.threads)
	return st
}

// Method returns the aggregates of a method.
func (s *State) Method(id uint64) (MethodStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[id]
	if !ok {
		return MethodStats{}, false
	}
	return *m, true
}

// CurrentThread returns the ID of the running thread.
func (s *State) CurrentThread() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, false
	}
	return s.current.id, true
}

// Stack returns the method IDs on the stack of a thread, root first.
func (s *State) Stack(thread uint32) ([]uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[thread]
	if !ok {
		return nil, false
	}
	path := make([]uint64, len(t.frames))
	for i, f := range t.frames {
		path[i] = f.method
	}
	return path, true
}

// InGC reports whether the last processed event left a garbage collection
// open.
func (s *State) InGC() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inGC
}

// Top returns up to n cached call stacks with the highest inclusive time.
func (s *State) Top(n int) []StackStats {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.stacks.Keys()
	all := make([]StackStats, 0, len(keys))
	for _, k := range keys {
		if st, ok := s.stacks.Peek(k); ok {
			cp := *st
			cp.Path = slices.Clone(st.Path)
			all = append(all, cp)
		}
	}
	slices.SortFunc(all, func(a, b StackStats) int {
		switch {
		case a.InclusiveNs != b.InclusiveNs:
			if a.InclusiveNs > b.InclusiveNs {
				return -1
			}
			return 1
		case a.Hash < b.Hash:
			return -1
		case a.Hash > b.Hash:
			return 1
		}
		return 0
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
