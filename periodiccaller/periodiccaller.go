// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package periodiccaller runs callbacks on a fixed interval in a background
// goroutine.
package periodiccaller // import "go.opentelemetry.io/shmtrace/periodiccaller"

import (
	"context"
	"time"

	"go.opentelemetry.io/shmtrace/util"
)

// Start calls callback every interval until ctx is done or the returned
// function is called. The returned function waits for a running callback
// to finish, so it must not be called from within callback.
func Start(ctx context.Context, interval time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				callback()
			case <-ctx.Done():
				return
			}
		}
	}()
	return stopper(cancel, done)
}

// StartWithManualTrigger is Start with an additional trigger channel. A
// receive on trigger calls callback immediately with manualTrigger set.
func StartWithManualTrigger(ctx context.Context, interval time.Duration, trigger <-chan bool,
	callback func(manualTrigger bool)) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				callback(false)
			case <-trigger:
				callback(true)
			case <-ctx.Done():
				return
			}
		}
	}()
	return stopper(cancel, done)
}

// StartWithJitter calls callback every baseDuration with +/- jitter applied,
// re-drawn after every call. jitter must be in [0..1].
func StartWithJitter(ctx context.Context, baseDuration time.Duration, jitter float64,
	callback func()) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	timer := time.NewTimer(util.AddJitter(baseDuration, jitter))
	go func() {
		defer close(done)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				callback()
			case <-ctx.Done():
				return
			}
			timer.Reset(util.AddJitter(baseDuration, jitter))
		}
	}()
	return stopper(cancel, done)
}

// stopper returns a function that cancels the caller goroutine and waits
// for it to exit. It is safe to call more than once.
func stopper(cancel context.CancelFunc, done <-chan struct{}) func() {
	return func() {
		cancel()
		<-done
	}
}
