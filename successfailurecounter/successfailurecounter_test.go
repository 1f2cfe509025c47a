// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package successfailurecounter

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessFailureCounter(t *testing.T) {
	tests := map[string]struct {
		run         func(sfc *SuccessFailureCounter)
		wantSuccess uint64
		wantFailure uint64
	}{
		"default success": {
			run:         func(sfc *SuccessFailureCounter) { sfc.DefaultToSuccess() },
			wantSuccess: 1,
		},
		"default failure": {
			run:         func(sfc *SuccessFailureCounter) { sfc.DefaultToFailure() },
			wantFailure: 1,
		},
		"success then default failure": {
			run: func(sfc *SuccessFailureCounter) {
				defer sfc.DefaultToFailure()
				sfc.ReportSuccess()
			},
			wantSuccess: 1,
		},
		"failure then default success": {
			run: func(sfc *SuccessFailureCounter) {
				defer sfc.DefaultToSuccess()
				sfc.ReportFailure()
			},
			wantFailure: 1,
		},
		"report true": {
			run:         func(sfc *SuccessFailureCounter) { sfc.Report(true) },
			wantSuccess: 1,
		},
		"report false": {
			run:         func(sfc *SuccessFailureCounter) { sfc.Report(false) },
			wantFailure: 1,
		},
		"second report ignored": {
			run: func(sfc *SuccessFailureCounter) {
				sfc.ReportFailure()
				sfc.ReportSuccess()
				sfc.ReportFailure()
			},
			wantFailure: 1,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var success, failure atomic.Uint64
			sfc := New(&success, &failure)
			tc.run(&sfc)
			assert.Equal(t, tc.wantSuccess, success.Load())
			assert.Equal(t, tc.wantFailure, failure.Load())
		})
	}
}

func TestSharedCounters(t *testing.T) {
	var success, failure atomic.Uint64
	for i := range 10 {
		sfc := New(&success, &failure)
		sfc.Report(i%3 != 0)
	}
	assert.Equal(t, uint64(6), success.Load())
	assert.Equal(t, uint64(4), failure.Load())
}
