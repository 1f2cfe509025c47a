//go:build !(linux || darwin || freebsd || netbsd || openbsd || windows)

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor // import "go.opentelemetry.io/shmtrace/supervisor"

type sysProcess struct{}

func (p *Process) attach() error {
	return ErrNotSupported
}

func (p *Process) poll() (code int, exited bool) {
	return -1, true
}

func (p *Process) release() {}

func (p *Process) terminate() error {
	return p.proc.Kill()
}
