// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package times

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tm := New(time.Second, time.Millisecond, 2*time.Second)
	assert.Equal(t, time.Second, tm.MonitorInterval())
	assert.Equal(t, time.Millisecond, tm.DrainPollInterval())
	assert.Equal(t, 2*time.Second, tm.ParentCheckInterval())
}

func TestDefaults(t *testing.T) {
	tm := New(0, -time.Second, 0)
	assert.Equal(t, DefaultMonitorInterval, tm.MonitorInterval())
	assert.Equal(t, DefaultDrainPollInterval, tm.DrainPollInterval())
	assert.Equal(t, DefaultParentCheckInterval, tm.ParentCheckInterval())
	assert.Equal(t, tm, Default())
}
