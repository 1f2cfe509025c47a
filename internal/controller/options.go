// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "go.opentelemetry.io/shmtrace/internal/controller"

import (
	"go.opentelemetry.io/shmtrace/metrics"
	"go.opentelemetry.io/shmtrace/platform"
)

type Option interface {
	applyOption(*Controller) *Controller
}
type controllerOptionFunc func(*Controller) *Controller

func (f controllerOptionFunc) applyOption(c *Controller) *Controller {
	return f(c)
}

// WithPlatform sets the platform the segment is opened with.
// This defaults to [platform.Native].
func WithPlatform(p platform.Platform) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.platform = p
		return c
	})
}

// WithParentPID sets the function used to detect the exit of the producer.
// This defaults to [os.Getppid].
func WithParentPID(getppid func() int) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.getppid = getppid
		return c
	})
}

// WithMetricsReporter sets a reporter that receives all metric batches.
func WithMetricsReporter(rep metrics.Reporter) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.metricsReporter = rep
		return c
	})
}
