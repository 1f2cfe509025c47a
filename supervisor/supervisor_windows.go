//go:build windows

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor // import "go.opentelemetry.io/shmtrace/supervisor"

import (
	"fmt"

	"golang.org/x/sys/windows"
)

type sysProcess struct {
	handle windows.Handle
}

func (p *Process) attach() error {
	h, err := windows.OpenProcess(
		windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION,
		false, uint32(p.proc.Pid))
	if err != nil {
		return fmt.Errorf("OpenProcess: %w", err)
	}
	p.sys.handle = h
	return nil
}

// poll checks the process handle with a zero timeout.
func (p *Process) poll() (code int, exited bool) {
	event, err := windows.WaitForSingleObject(p.sys.handle, 0)
	if err != nil {
		return -1, true
	}
	if event == uint32(windows.WAIT_TIMEOUT) {
		return 0, false
	}
	var exitCode uint32
	if err := windows.GetExitCodeProcess(p.sys.handle, &exitCode); err != nil {
		return -1, true
	}
	return int(exitCode), true
}

// terminate has no graceful variant, console control events do not reach
// processes without a console.
func (p *Process) terminate() error {
	return p.proc.Kill()
}

func (p *Process) release() {
	_ = windows.CloseHandle(p.sys.handle)
	_ = p.proc.Release()
}
