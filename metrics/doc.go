// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package metrics buffers and reports the internal counters of producer
sessions and of the consumer.

Metric IDs are defined in metrics.json and turned into constants in ids.go by
genids. IDs are never reused: obsolete metrics keep their entry with
"obsolete": true.

Producers of metrics keep plain atomic counters on their hot paths and hand
the deltas to AddSlice from a periodiccaller callback:

	periodiccaller.Start(ctx, intervals.MonitorInterval(), func() {
		metrics.AddSlice([]metrics.Metric{
			{ID: metrics.IDSessionEventsPushed,
				Value: metrics.MetricValue(pushed.Swap(0))},
		})
	})

Buffered metrics are forwarded to the OTel instruments created from
metrics.json, and to a Reporter if one is installed with SetReporter, once
per second or when Flush is called.

# Directory Structure

	metrics
	├── genids/         // generator for ids.go
	├── doc.go          // this file
	├── ids.go          // generated metric IDs
	├── metrics.go      // Add(), AddSlice() and Flush()
	├── metrics.json    // metric definitions
	├── metrics_test.go // tests the metrics package
	└── types.go        // Metric, MetricID, MetricValue and MetricDefinition
*/
package metrics // import "go.opentelemetry.io/shmtrace/metrics"
