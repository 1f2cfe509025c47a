//go:build linux || darwin || freebsd || netbsd || openbsd

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor // import "go.opentelemetry.io/shmtrace/supervisor"

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type sysProcess struct{}

func (p *Process) attach() error {
	return nil
}

// poll collects the child's exit status if it has one, without waiting.
func (p *Process) poll() (code int, exited bool) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(p.proc.Pid, &ws, unix.WNOHANG, nil)
	switch {
	case errors.Is(err, unix.EINTR):
		return 0, false
	case err != nil:
		// ECHILD: the status was collected elsewhere, the child is gone.
		log.Debugf("Wait for %s failed: %v", p, err)
		return -1, true
	case wpid == 0:
		return 0, false
	case ws.Exited():
		return ws.ExitStatus(), true
	case ws.Signaled():
		return -1, true
	default:
		return 0, false
	}
}

func (p *Process) terminate() error {
	return p.proc.Signal(unix.SIGTERM)
}

func (p *Process) release() {
	// The status has been collected by poll, only the Go side is left.
	_ = p.proc.Release()
}
