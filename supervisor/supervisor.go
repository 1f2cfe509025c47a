// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor starts the consumer process and answers, without
// blocking, whether it is still running.
package supervisor // import "go.opentelemetry.io/shmtrace/supervisor"

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// ErrNotSupported is returned on platforms without process supervision.
var ErrNotSupported = errors.New("process supervision is not supported on this platform")

// Process is a child process started by Spawn.
type Process struct {
	path string
	proc *os.Process

	// mu serializes polls of the child's state.
	mu       sync.Mutex
	exited   atomic.Bool
	exitCode int
	sys      sysProcess
}

// Spawn starts path as a child process with args as its arguments. The
// child inherits the standard streams of the calling process.
func Spawn(path string, args []string) (*Process, error) {
	argv := append([]string{path}, args...)
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", path, err)
	}

	p := &Process{path: path, proc: proc, exitCode: -1}
	if err = p.attach(); err != nil {
		_ = proc.Kill()
		return nil, fmt.Errorf("failed to supervise %s (pid %d): %w", path, proc.Pid, err)
	}
	log.Debugf("Spawned %s (pid %d)", path, proc.Pid)
	return p, nil
}

// Pid returns the process ID of the child.
func (p *Process) Pid() int {
	return p.proc.Pid
}

// Running reports whether the child is still running. It never blocks, and
// reaps the child once it has exited. After it returned false once it keeps
// returning false.
func (p *Process) Running() bool {
	if p.exited.Load() {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited.Load() {
		return false
	}
	code, done := p.poll()
	if !done {
		return true
	}
	p.exitCode = code
	p.exited.Store(true)
	p.release()
	return false
}

// ExitCode returns the exit code of the child once Running has observed its
// exit. The code is -1 if the child was terminated by a signal or its status
// could not be collected.
func (p *Process) ExitCode() (int, bool) {
	if !p.exited.Load() {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, true
}

// Kill terminates the child immediately. Running observes the exit on a
// later call.
func (p *Process) Kill() error {
	return p.signal("kill", p.proc.Kill)
}

// Terminate asks the child to exit. On Windows it is the same as Kill.
func (p *Process) Terminate() error {
	return p.signal("terminate", p.terminate)
}

func (p *Process) signal(what string, send func() error) error {
	// Hold mu so the handle is not released underneath us.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited.Load() {
		return nil
	}
	if err := send(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to %s %s: %w", what, p, err)
	}
	return nil
}

func (p *Process) String() string {
	return fmt.Sprintf("%s (pid %d)", p.path, p.proc.Pid)
}
