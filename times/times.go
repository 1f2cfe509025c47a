// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package times holds the intervals used by the producer session and the
// consumer in one place.
package times // import "go.opentelemetry.io/shmtrace/times"

import (
	"time"
)

const (
	// DefaultMonitorInterval is the default interval between metric flushes
	// and consumer summaries.
	DefaultMonitorInterval = 5 * time.Second
	// DefaultDrainPollInterval is how long the consumer sleeps after finding
	// the ring empty.
	DefaultDrainPollInterval = 100 * time.Microsecond
	// DefaultParentCheckInterval is how often the consumer checks whether
	// the producer is still its parent.
	DefaultParentCheckInterval = 250 * time.Millisecond
)

// Compile time check for interface adherence
var _ IntervalsAndTimers = (*Times)(nil)

// Times holds the intervals and comes with getters to read them.
type Times struct {
	monitorInterval     time.Duration
	drainPollInterval   time.Duration
	parentCheckInterval time.Duration
}

// IntervalsAndTimers is a meta-interface that exists purely to document its functionality.
type IntervalsAndTimers interface {
	// MonitorInterval defines the interval for metric collection and the
	// periodic consumer summary.
	MonitorInterval() time.Duration
	// DrainPollInterval defines the back-off of the consumer drain loop while
	// the ring is empty.
	DrainPollInterval() time.Duration
	// ParentCheckInterval defines the interval at which the consumer checks
	// for the exit of the producer.
	ParentCheckInterval() time.Duration
}

func (t *Times) MonitorInterval() time.Duration { return t.monitorInterval }

func (t *Times) DrainPollInterval() time.Duration { return t.drainPollInterval }

func (t *Times) ParentCheckInterval() time.Duration { return t.parentCheckInterval }

// New returns a new Times instance. Zero durations are replaced by their
// defaults.
func New(monitorInterval, drainPollInterval, parentCheckInterval time.Duration) *Times {
	return &Times{
		monitorInterval:     orDefault(monitorInterval, DefaultMonitorInterval),
		drainPollInterval:   orDefault(drainPollInterval, DefaultDrainPollInterval),
		parentCheckInterval: orDefault(parentCheckInterval, DefaultParentCheckInterval),
	}
}

// Default returns a Times instance with all defaults.
func Default() *Times {
	return New(0, 0, 0)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
