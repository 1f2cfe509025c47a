// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package successfailurecounter tallies the outcome of one operation into
// exactly one of two atomic counters.
//
// A SuccessFailureCounter belongs to a single operation and must not be
// shared between goroutines. The counters it points to may be shared.
package successfailurecounter // import "go.opentelemetry.io/shmtrace/successfailurecounter"

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// SuccessFailureCounter increments either its success or its failure
// counter, at most once.
type SuccessFailureCounter struct {
	success, fail *atomic.Uint64
	sealed        bool
}

// New returns a SuccessFailureCounter for one operation.
func New(success, fail *atomic.Uint64) SuccessFailureCounter {
	return SuccessFailureCounter{success: success, fail: fail}
}

// Report counts the operation as a success if ok is set and as a failure
// otherwise.
func (sfc *SuccessFailureCounter) Report(ok bool) {
	if ok {
		sfc.ReportSuccess()
	} else {
		sfc.ReportFailure()
	}
}

// ReportSuccess counts the operation as a success.
func (sfc *SuccessFailureCounter) ReportSuccess() {
	if sfc.sealed {
		log.Errorf("Outcome reported twice, ignoring success")
		return
	}
	sfc.success.Add(1)
	sfc.sealed = true
}

// ReportFailure counts the operation as a failure.
func (sfc *SuccessFailureCounter) ReportFailure() {
	if sfc.sealed {
		log.Errorf("Outcome reported twice, ignoring failure")
		return
	}
	sfc.fail.Add(1)
	sfc.sealed = true
}

// DefaultToSuccess counts a success unless an outcome was already reported.
func (sfc *SuccessFailureCounter) DefaultToSuccess() {
	if !sfc.sealed {
		sfc.ReportSuccess()
	}
}

// DefaultToFailure counts a failure unless an outcome was already reported.
func (sfc *SuccessFailureCounter) DefaultToFailure() {
	if !sfc.sealed {
		sfc.ReportFailure()
	}
}
