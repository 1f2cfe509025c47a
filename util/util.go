// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package util // import "go.opentelemetry.io/shmtrace/util"

import (
	"math/bits"
	"math/rand/v2"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// IsValidString checks if string is UTF-8-encoded and only contains expected characters.
func IsValidString(s string) bool {
	if s == "" {
		return false
	}
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// IsPowerOfTwo reports whether v is a power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// NextPowerOfTwo returns input value if it's a power of two,
// otherwise it returns the next power of two.
func NextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return 1 << bits.Len32(v-1)
}

// AtomicUpdateMaxUint64 updates the value in store using atomic memory primitives. newValue will
// only be placed in store if newValue is larger than the current value in store.
func AtomicUpdateMaxUint64(store *atomic.Uint64, newValue uint64) {
	for {
		oldValue := store.Load()
		if newValue <= oldValue {
			break
		}
		if store.CompareAndSwap(oldValue, newValue) {
			break
		}
		// The value changed between load and update attempt.
	}
}

// AddJitter adds +/- jitter (jitter is [0..1]) to baseDuration.
func AddJitter(baseDuration time.Duration, jitter float64) time.Duration {
	if jitter < 0.0 || jitter > 1.0 {
		log.Errorf("Jitter (%f) out of range [0..1].", jitter)
		return baseDuration
	}
	//nolint:gosec
	return time.Duration((1 + jitter - 2*jitter*rand.Float64()) * float64(baseDuration))
}
