// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package session // import "go.opentelemetry.io/shmtrace/session"

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/shmtrace/event"
	"go.opentelemetry.io/shmtrace/platform"
	"go.opentelemetry.io/shmtrace/ringbuffer"
	"go.opentelemetry.io/shmtrace/times"
)

// ErrConfig is returned by New for an unusable Config.
var ErrConfig = errors.New("invalid session configuration")

const (
	// DefaultLivenessCheckEvery polls the consumer on every failed push.
	DefaultLivenessCheckEvery = 1
	// DefaultCloseTimeout bounds each of the two waits in Close.
	DefaultCloseTimeout = time.Second
)

// Config is the configuration of a producer session.
type Config struct {
	// ConsumerPath is the consumer executable.
	ConsumerPath string
	// ConsumerArgs are passed to the consumer ahead of the segment name,
	// which is always the last argument.
	ConsumerArgs []string
	// Capacity is the number of events the ring holds. It must be a power
	// of two and match the capacity the consumer expects. Zero selects
	// ringbuffer.DefaultCapacity.
	Capacity uint64
	// LivenessCheckEvery is the number of failed push attempts between two
	// consumer liveness checks. Zero selects DefaultLivenessCheckEvery.
	LivenessCheckEvery int
	// CloseTimeout bounds how long Close waits for the consumer to drain
	// the ring and, after killing it, to exit. Zero selects
	// DefaultCloseTimeout.
	CloseTimeout time.Duration
	// OriginUnit is the execution unit that owns logical thread ID 0.
	// It must be comparable.
	OriginUnit any
	// Origin is the clock origin of all event timestamps. A nil Origin
	// starts a new one when the session is created.
	Origin *event.Origin
	// Intervals provides the metric flush interval. Nil selects
	// times.Default().
	Intervals times.IntervalsAndTimers
	// Platform provides shared memory and process supervision. Nil selects
	// platform.Native().
	Platform platform.Platform
}

// Validate checks the configuration for errors.
func (cfg *Config) Validate() error {
	if cfg.ConsumerPath == "" {
		return fmt.Errorf("%w: consumer path is empty", ErrConfig)
	}
	if cfg.Capacity != 0 {
		if _, err := ringbuffer.Size(cfg.Capacity); err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	if cfg.LivenessCheckEvery < 0 {
		return fmt.Errorf("%w: liveness check cadence %d is negative",
			ErrConfig, cfg.LivenessCheckEvery)
	}
	if cfg.CloseTimeout < 0 {
		return fmt.Errorf("%w: close timeout %v is negative", ErrConfig, cfg.CloseTimeout)
	}
	return nil
}

// withDefaults returns a copy of cfg with zero values replaced by defaults.
func (cfg *Config) withDefaults() Config {
	c := *cfg
	if c.Capacity == 0 {
		c.Capacity = ringbuffer.DefaultCapacity
	}
	if c.LivenessCheckEvery == 0 {
		c.LivenessCheckEvery = DefaultLivenessCheckEvery
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.Origin == nil {
		c.Origin = event.NewOrigin()
	}
	if c.Intervals == nil {
		c.Intervals = times.Default()
	}
	if c.Platform == nil {
		c.Platform = platform.Native()
	}
	c.ConsumerArgs = append([]string(nil), cfg.ConsumerArgs...)
	return c
}
