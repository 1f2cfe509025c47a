//go:build linux || darwin || freebsd || netbsd || openbsd

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const helperEnv = "SHMTRACE_SUPERVISOR_HELPER"

// TestHelperProcess is not a real test. It is the body of the child
// processes spawned by the tests below.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		t.Skip("helper process only")
	}
	switch mode {
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	default:
		code, err := strconv.Atoi(mode)
		if err != nil {
			os.Exit(100)
		}
		os.Exit(code)
	}
}

func spawnHelper(t *testing.T, mode string) *Process {
	t.Helper()
	t.Setenv(helperEnv, mode)
	p, err := Spawn(os.Args[0], []string{"-test.run=^TestHelperProcess$"})
	require.NoError(t, err)
	return p
}

func waitExit(t *testing.T, p *Process) {
	t.Helper()
	require.Eventually(t, func() bool { return !p.Running() },
		10*time.Second, 5*time.Millisecond)
}

func TestExitCode(t *testing.T) {
	p := spawnHelper(t, "3")
	waitExit(t, p)

	code, ok := p.ExitCode()
	require.True(t, ok)
	assert.Equal(t, 3, code)
	assert.False(t, p.Running())
}

func TestKill(t *testing.T) {
	p := spawnHelper(t, "sleep")
	assert.True(t, p.Running())
	_, ok := p.ExitCode()
	assert.False(t, ok)

	require.NoError(t, p.Kill())
	waitExit(t, p)

	code, ok := p.ExitCode()
	require.True(t, ok)
	assert.Equal(t, -1, code)
	require.NoError(t, p.Kill())
}

func TestTerminate(t *testing.T) {
	p := spawnHelper(t, "sleep")
	require.NoError(t, p.Terminate())
	waitExit(t, p)

	code, ok := p.ExitCode()
	require.True(t, ok)
	assert.Equal(t, -1, code)
	require.NoError(t, p.Terminate())
}

func TestExitedChildIsReaped(t *testing.T) {
	p := spawnHelper(t, "0")
	pid := p.Pid()
	waitExit(t, p)

	var ws unix.WaitStatus
	_, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	require.ErrorIs(t, err, unix.ECHILD)
}

func TestRunningDoesNotBlock(t *testing.T) {
	p := spawnHelper(t, "sleep")
	t.Cleanup(func() {
		_ = p.Kill()
		waitExit(t, p)
	})

	start := time.Now()
	for range 1000 {
		require.True(t, p.Running())
	}
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSpawnMissingExecutable(t *testing.T) {
	_, err := Spawn(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	require.Error(t, err)
}
