// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller runs the consumer: it maps the producer's ring, drains
// it into the trace state and an optional capture file, and stops once the
// producer is gone.
package controller // import "go.opentelemetry.io/shmtrace/internal/controller"

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/shmtrace/event"
	"go.opentelemetry.io/shmtrace/metrics"
	"go.opentelemetry.io/shmtrace/periodiccaller"
	"go.opentelemetry.io/shmtrace/platform"
	"go.opentelemetry.io/shmtrace/recorder"
	"go.opentelemetry.io/shmtrace/ringbuffer"
	"go.opentelemetry.io/shmtrace/times"
	"go.opentelemetry.io/shmtrace/tracestate"
	"go.opentelemetry.io/shmtrace/util"
)

// errParentExited stops the drain loop once the producer is gone.
var errParentExited = errors.New("producer exited")

// Controller is an instance that runs, manages and stops the consumer.
type Controller struct {
	config    *Config
	intervals *times.Times

	platform        platform.Platform
	getppid         func() int
	metricsReporter metrics.Reporter

	segment platform.Segment
	ring    *ringbuffer.Ring
	state   *tracestate.State
	writer  *recorder.Writer

	// buf is owned by the drain loop until it has exited.
	buf []event.Event

	drained     atomic.Uint64
	batches     atomic.Uint64
	peakBacklog atomic.Uint64

	// metricsMu guards the values of the previous metrics collection.
	metricsMu    sync.Mutex
	prevState    tracestate.Stats
	prevRecorded uint64

	group       *errgroup.Group
	stopMonitor func()
}

// New creates a new controller.
func New(cfg *Config, opts ...Option) *Controller {
	c := &Controller{
		config:   cfg,
		platform: platform.Native(),
		getppid:  os.Getppid,
	}
	for _, opt := range opts {
		c = opt.applyOption(c)
	}
	return c
}

// Start maps the segment and starts draining it. The controller should only
// be started once.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.config.Validate(); err != nil {
		return err
	}
	c.intervals = times.New(c.config.MonitorInterval, c.config.DrainPollInterval,
		c.config.ParentCheckInterval)

	var err error
	c.state, err = tracestate.New(uint32(c.config.StackCacheSize))
	if err != nil {
		return err
	}

	// Sample the parent before opening the segment so a producer exiting
	// right now is not missed.
	parent := c.getppid()

	size, err := ringbuffer.Size(c.config.Capacity)
	if err != nil {
		return err
	}
	seg, err := c.platform.OpenSegment(c.config.SegmentName, size)
	if err != nil {
		return fmt.Errorf("failed to open segment %s: %w", c.config.SegmentName, err)
	}
	c.segment = seg

	if !c.config.KeepSegment {
		// The mapping stays valid, only the name goes away.
		if err = seg.Unlink(); err != nil {
			log.Warnf("Failed to unlink segment %s: %v", seg.Name(), err)
		}
	}

	c.ring, err = ringbuffer.New(seg.Bytes(), c.config.Capacity)
	if err != nil {
		return fmt.Errorf("failed to attach ring: %w", err)
	}

	if c.config.RecordPath != "" {
		c.writer, err = recorder.Create(c.config.RecordPath)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		log.Infof("Recording events to %s", c.config.RecordPath)
	}

	if c.metricsReporter != nil {
		metrics.SetReporter(c.metricsReporter)
	}

	c.buf = make([]event.Event, c.config.BatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.drainLoop(gctx)
	})
	g.Go(func() error {
		return c.watchParent(gctx, parent)
	})
	c.group = g
	c.stopMonitor = periodiccaller.Start(gctx, c.intervals.MonitorInterval(), c.collectMetrics)

	log.Infof("Attached to segment %s (%d slots, producer pid %d)",
		seg.Name(), c.ring.Capacity(), parent)
	return nil
}

// Wait blocks until ctx of Start is done or the producer exited.
func (c *Controller) Wait() error {
	if c.group == nil {
		return nil
	}
	err := c.group.Wait()
	if errors.Is(err, errParentExited) {
		return nil
	}
	return err
}

// drainLoop moves events from the ring into the trace state until ctx is
// done. It sleeps for the drain poll interval while the ring is empty.
func (c *Controller) drainLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.intervals.DrainPollInterval())
	defer ticker.Stop()

	for {
		n, err := c.drainOnce()
		if err != nil {
			return err
		}
		if n > 0 {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// drainOnce processes one batch and returns its size.
func (c *Controller) drainOnce() (int, error) {
	util.AtomicUpdateMaxUint64(&c.peakBacklog, c.ring.Len())
	n := c.ring.Read(c.buf)
	if n == 0 {
		return 0, nil
	}
	batch := c.buf[:n]
	c.state.Process(batch)
	c.drained.Add(uint64(n))
	c.batches.Add(1)

	if c.writer != nil {
		if err := c.writer.Write(batch); err != nil {
			return n, fmt.Errorf("failed to record events: %w", err)
		}
	}
	return n, nil
}

// watchParent returns errParentExited once the parent process changed.
func (c *Controller) watchParent(ctx context.Context, parent int) error {
	ticker := time.NewTicker(c.intervals.ParentCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ppid := c.getppid(); ppid != parent {
				log.Infof("Producer (pid %d) exited", parent)
				return errParentExited
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// collectMetrics reports the counter deltas since the previous call and
// logs a summary.
func (c *Controller) collectMetrics() {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()

	st := c.state.Stats()
	var recorded uint64
	if c.writer != nil {
		recorded = c.writer.Bytes()
	}

	metrics.AddSlice([]metrics.Metric{
		{ID: metrics.IDConsumerEventsDrained,
			Value: metrics.MetricValue(c.drained.Swap(0))},
		{ID: metrics.IDConsumerDrainBatches,
			Value: metrics.MetricValue(c.batches.Swap(0))},
		{ID: metrics.IDConsumerStackCacheHit,
			Value: metrics.MetricValue(st.StackCacheHit - c.prevState.StackCacheHit)},
		{ID: metrics.IDConsumerStackCacheMiss,
			Value: metrics.MetricValue(st.StackCacheMiss - c.prevState.StackCacheMiss)},
		{ID: metrics.IDConsumerOrphanedEvents,
			Value: metrics.MetricValue(st.Orphaned - c.prevState.Orphaned)},
		{ID: metrics.IDConsumerBytesRecorded,
			Value: metrics.MetricValue(recorded - c.prevRecorded)},
		{ID: metrics.IDConsumerInvalidEvents,
			Value: metrics.MetricValue(st.Invalid - c.prevState.Invalid)},
		{ID: metrics.IDConsumerPeakBacklog,
			Value: metrics.MetricValue(c.peakBacklog.Swap(0))},
	})
	c.prevState = st
	c.prevRecorded = recorded

	log.Debugf("Processed %d events: %d threads, %d GCs, %d orphaned",
		st.Events, st.Threads, st.GCs, st.Orphaned)
}

// State returns the reconstructed trace state.
func (c *Controller) State() *tracestate.State {
	return c.state
}

// Shutdown stops the controller after Wait returned. It drains what the
// producer left in the ring, closes the capture file and unmaps the segment.
func (c *Controller) Shutdown() error {
	log.Info("Stop processing ...")
	if c.stopMonitor != nil {
		c.stopMonitor()
	}

	var errs []error
	if c.ring != nil {
		for {
			n, err := c.drainOnce()
			if err != nil {
				errs = append(errs, err)
				break
			}
			if n == 0 {
				break
			}
		}
		c.collectMetrics()
		metrics.Flush()
		c.logSummary()
	}

	if c.writer != nil {
		if err := c.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close capture file: %w", err))
		}
	}
	if c.segment != nil {
		if err := c.segment.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unmap segment: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) logSummary() {
	st := c.state.Stats()
	log.Infof("Processed %d events (%d invalid, %d orphaned), %d GCs taking %v",
		st.Events, st.Invalid, st.Orphaned, st.GCs, time.Duration(st.GCNs))
	for i, top := range c.state.Top(5) {
		log.Infof("Hot stack #%d: %v, %d calls, %v inclusive",
			i+1, top.Path, top.Calls, time.Duration(top.InclusiveNs))
	}
}
