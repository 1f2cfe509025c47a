// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "go.opentelemetry.io/shmtrace/internal/controller"

import (
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/shmtrace/metrics"
)

// LogReporter writes every metric batch to the debug log.
type LogReporter struct {
	once  sync.Once
	names map[uint32]string
}

var _ metrics.Reporter = (*LogReporter)(nil)

func (r *LogReporter) ReportMetrics(timestamp uint32, ids []uint32, values []int64) {
	r.once.Do(func() {
		r.names = make(map[uint32]string)
		for _, md := range metrics.GetDefinitions() {
			r.names[uint32(md.ID)] = md.Field
		}
	})
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}

	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(r.names[id])
		sb.WriteString("=")
		sb.WriteString(strconv.FormatInt(values[i], 10))
	}
	log.Debugf("Metrics at %d: %s", timestamp, sb.String())
}
