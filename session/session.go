// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements the producer side of a trace: it owns the
// shared ring, the supervised consumer process and the clock origin, and
// turns instrumentation callbacks into events.
//
// A session is Active until its consumer is found dead while the ring is
// full, or until it is closed. From then on it is Disabled for good and
// Record returns after a single atomic load.
package session // import "go.opentelemetry.io/shmtrace/session"

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/shmtrace/event"
	"go.opentelemetry.io/shmtrace/metrics"
	"go.opentelemetry.io/shmtrace/periodiccaller"
	"go.opentelemetry.io/shmtrace/platform"
	"go.opentelemetry.io/shmtrace/ringbuffer"
	"go.opentelemetry.io/shmtrace/successfailurecounter"
)

// OverflowThreadID is shared by all units seen after the logical thread ID
// space ran out.
const OverflowThreadID = math.MaxUint32

// State is the state of a session.
type State int32

const (
	// StateActive forwards events to the consumer.
	StateActive State = iota
	// StateDisabled drops all events.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Stats are the cumulative counters of a session.
type Stats struct {
	State State
	// Pushed is the number of events written to the ring.
	Pushed uint64
	// Dropped is the number of events abandoned while the session was
	// being disabled.
	Dropped uint64
	// Retries is the number of push attempts that found the ring full.
	Retries uint64
	// LivenessChecks is the number of consumer liveness checks.
	LivenessChecks uint64
}

// Session is a producer session. Record and the kind helpers are safe for
// concurrent use; they are serialized before they reach the ring.
type Session struct {
	state atomic.Int32

	// mu serializes producers, the ring is single producer.
	mu         sync.Mutex
	ring       *ringbuffer.Ring
	origin     *event.Origin
	checkEvery int

	pushed         atomic.Uint64
	dropped        atomic.Uint64
	retries        atomic.Uint64
	livenessChecks atomic.Uint64
	disabled       atomic.Uint64

	segment      platform.Segment
	consumer     platform.Consumer
	closeTimeout time.Duration

	// ids maps execution units to logical thread IDs. idMu serializes the
	// assignment of new IDs.
	ids        sync.Map
	idMu       sync.Mutex
	lastID     atomic.Uint32
	idOverflow sync.Once

	// prev holds the counter values of the last metrics flush.
	metricsMu   sync.Mutex
	prev        Stats
	stopMetrics func()

	closeOnce sync.Once
	closeErr  error
}

// New creates the shared ring, starts the consumer with the segment name as
// its last argument and returns an Active session. Nothing is left behind
// if New fails. ctx bounds the periodic metrics flush.
func New(ctx context.Context, cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := cfg.withDefaults()

	size, err := ringbuffer.Size(c.Capacity)
	if err != nil {
		return nil, err
	}

	name := c.Platform.SegmentName()
	seg, err := c.Platform.CreateSegment(name, size)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment %s: %w", name, err)
	}
	cleanup := func() {
		if err := seg.Close(); err != nil {
			log.Errorf("Failed to unmap segment %s: %v", name, err)
		}
		if err := seg.Unlink(); err != nil {
			log.Errorf("Failed to unlink segment %s: %v", name, err)
		}
	}

	ring, err := ringbuffer.New(seg.Bytes(), c.Capacity)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to map ring onto segment %s: %w", name, err)
	}
	ring.Init()

	args := append(slices.Clone(c.ConsumerArgs), name)
	consumer, err := c.Platform.SpawnConsumer(c.ConsumerPath, args)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}
	log.Infof("Started consumer %s (pid %d) on segment %s with %d slots",
		c.ConsumerPath, consumer.Pid(), name, c.Capacity)

	s := &Session{
		ring:         ring,
		origin:       c.Origin,
		checkEvery:   c.LivenessCheckEvery,
		segment:      seg,
		consumer:     consumer,
		closeTimeout: c.CloseTimeout,
	}
	s.ids.Store(c.OriginUnit, uint32(0))
	s.stopMetrics = periodiccaller.Start(ctx, c.Intervals.MonitorInterval(),
		s.collectMetrics)
	return s, nil
}

// Record sends one event to the consumer. While the ring is full it spins,
// yielding the processor, until the consumer makes room, checking the
// consumer's liveness every LivenessCheckEvery attempts. If the consumer has exited the event is
// dropped and the session becomes Disabled.
func (s *Session) Record(kind event.Kind, payload uint64) {
	if State(s.state.Load()) != StateActive {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sfc := successfailurecounter.New(&s.pushed, &s.dropped)
	defer sfc.DefaultToFailure()

	e := event.Encode(s.origin, kind, payload)
	for attempts := 1; ; attempts++ {
		// The state may have changed while waiting for mu or spinning.
		if State(s.state.Load()) != StateActive {
			return
		}
		if s.ring.TryPush(e) {
			sfc.ReportSuccess()
			return
		}
		s.retries.Add(1)
		if attempts%s.checkEvery == 0 {
			s.livenessChecks.Add(1)
			if !s.consumer.Running() {
				s.disable()
				return
			}
		}
		runtime.Gosched()
	}
}

// disable makes the transition to StateDisabled. Only the first call has an
// effect.
func (s *Session) disable() {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateDisabled)) {
		return
	}
	s.disabled.Add(1)
	log.Warnf("Consumer (pid %d) of segment %s has exited, tracing is disabled",
		s.consumer.Pid(), s.segment.Name())
}

// Call records entry into methodID.
func (s *Session) Call(methodID uint64) {
	s.Record(event.KindCall, methodID)
}

// Return records exit from methodID.
func (s *Session) Return(methodID uint64) {
	s.Record(event.KindReturn, methodID)
}

// GCStart records the start of a garbage collection.
func (s *Session) GCStart() {
	s.Record(event.KindGCStart, 0)
}

// GCEnd records the end of a garbage collection.
func (s *Session) GCEnd() {
	s.Record(event.KindGCEnd, 0)
}

// ThreadStart records the creation of unit.
func (s *Session) ThreadStart(unit any) {
	s.recordThread(event.KindThreadStart, unit)
}

// ThreadReady records that unit became runnable.
func (s *Session) ThreadReady(unit any) {
	s.recordThread(event.KindThreadReady, unit)
}

// ThreadSuspended records that unit stopped running.
func (s *Session) ThreadSuspended(unit any) {
	s.recordThread(event.KindThreadSuspended, unit)
}

// ThreadResume records that unit continued running.
func (s *Session) ThreadResume(unit any) {
	s.recordThread(event.KindThreadResume, unit)
}

// ThreadExit records the termination of unit.
func (s *Session) ThreadExit(unit any) {
	s.recordThread(event.KindThreadExit, unit)
}

func (s *Session) recordThread(kind event.Kind, unit any) {
	if State(s.state.Load()) != StateActive {
		return
	}
	s.Record(kind, uint64(s.LogicalThreadID(unit)))
}

// LogicalThreadID returns the ID of unit, assigning the next free ID on
// first sight. IDs start at 1 and are never reused; the origin unit of the
// session has ID 0. Once all IDs below OverflowThreadID are taken, every new
// unit shares OverflowThreadID. unit must be comparable.
func (s *Session) LogicalThreadID(unit any) uint32 {
	if id, ok := s.ids.Load(unit); ok {
		return id.(uint32)
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()
	if id, ok := s.ids.Load(unit); ok {
		return id.(uint32)
	}
	if s.lastID.Load() >= OverflowThreadID-1 {
		s.idOverflow.Do(func() {
			log.Warnf("Logical thread IDs of segment %s are exhausted, new units share ID %d",
				s.segment.Name(), uint32(OverflowThreadID))
		})
		s.ids.Store(unit, uint32(OverflowThreadID))
		return OverflowThreadID
	}
	id := s.lastID.Add(1)
	s.ids.Store(unit, id)
	return id
}

// State returns the current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// SegmentName returns the name of the shared segment.
func (s *Session) SegmentName() string {
	return s.segment.Name()
}

// ConsumerPid returns the process ID of the consumer.
func (s *Session) ConsumerPid() int {
	return s.consumer.Pid()
}

// Origin returns the clock origin of the event timestamps.
func (s *Session) Origin() *event.Origin {
	return s.origin
}

// Stats returns the cumulative counters.
func (s *Session) Stats() Stats {
	return Stats{
		State:          s.State(),
		Pushed:         s.pushed.Load(),
		Dropped:        s.dropped.Load(),
		Retries:        s.retries.Load(),
		LivenessChecks: s.livenessChecks.Load(),
	}
}

// collectMetrics reports the counter deltas since the previous call.
func (s *Session) collectMetrics() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()

	cur := s.Stats()
	metrics.AddSlice([]metrics.Metric{
		{ID: metrics.IDSessionEventsPushed,
			Value: metrics.MetricValue(cur.Pushed - s.prev.Pushed)},
		{ID: metrics.IDSessionEventsDropped,
			Value: metrics.MetricValue(cur.Dropped - s.prev.Dropped)},
		{ID: metrics.IDSessionPushRetries,
			Value: metrics.MetricValue(cur.Retries - s.prev.Retries)},
		{ID: metrics.IDSessionLivenessChecks,
			Value: metrics.MetricValue(cur.LivenessChecks - s.prev.LivenessChecks)},
		{ID: metrics.IDSessionDisabled,
			Value: metrics.MetricValue(s.disabled.Swap(0))},
		{ID: metrics.IDSessionRingFill,
			Value: metrics.MetricValue(s.ringFill(cur.State))},
	})
	s.prev = cur
}

func (s *Session) ringFill(state State) uint64 {
	if state != StateActive {
		return 0
	}
	return s.ring.Len()
}

// Close disables the session, gives the consumer up to CloseTimeout to
// drain the ring and then stops it. It unmaps and unlinks the segment.
// Close waits for a Record in progress to return.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		wasActive := s.state.CompareAndSwap(int32(StateActive), int32(StateDisabled))

		s.mu.Lock()
		defer s.mu.Unlock()

		s.stopMetrics()
		s.collectMetrics()
		metrics.Flush()

		if wasActive {
			s.waitDrained()
		}
		s.stopConsumer()

		if err := s.segment.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to unmap segment %s: %w", s.segment.Name(), err)
		}
		if err := s.segment.Unlink(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("failed to unlink segment %s: %w", s.segment.Name(), err)
		}
		log.Infof("Closed session on segment %s: %d events pushed, %d dropped",
			s.segment.Name(), s.pushed.Load(), s.dropped.Load())
	})
	return s.closeErr
}

// waitDrained waits until the consumer emptied the ring, exited, or the
// close timeout expired.
func (s *Session) waitDrained() {
	deadline := time.Now().Add(s.closeTimeout)
	for s.ring.Len() > 0 && s.consumer.Running() {
		if time.Now().After(deadline) {
			log.Warnf("Consumer (pid %d) left %d events in segment %s",
				s.consumer.Pid(), s.ring.Len(), s.segment.Name())
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// stopConsumer asks the consumer to exit, kills it if it does not, and waits
// for it to be reaped.
func (s *Session) stopConsumer() {
	if !s.consumer.Running() {
		return
	}
	if err := s.consumer.Terminate(); err != nil {
		log.Errorf("Failed to stop consumer: %v", err)
	}
	if s.waitExit() {
		return
	}
	log.Warnf("Consumer (pid %d) ignored termination, killing it", s.consumer.Pid())
	if err := s.consumer.Kill(); err != nil {
		log.Errorf("Failed to kill consumer: %v", err)
		return
	}
	if !s.waitExit() {
		log.Errorf("Consumer (pid %d) did not exit", s.consumer.Pid())
	}
}

// waitExit waits up to the close timeout for the consumer to exit.
func (s *Session) waitExit() bool {
	deadline := time.Now().Add(s.closeTimeout)
	for s.consumer.Running() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}
