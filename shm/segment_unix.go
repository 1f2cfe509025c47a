//go:build linux || darwin || freebsd || netbsd || openbsd

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package shm // import "go.opentelemetry.io/shmtrace/shm"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// namePrefix follows the POSIX shm_open naming convention.
const namePrefix = "/"

// shmDir is where POSIX shared memory objects live on Linux.
const shmDir = "/dev/shm"

type sysSegment struct {
	path string
}

func checkName(name string) error {
	if !strings.HasPrefix(name, "/") || strings.Contains(name[1:], "/") {
		return fmt.Errorf("%w: %q must have exactly one leading slash", ErrName, name)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: %q is too long", ErrName, name)
	}
	return nil
}

// segmentPath maps a POSIX shared memory name to its backing file. Hosts
// without /dev/shm fall back to the temporary directory.
func segmentPath(name string) string {
	if info, err := os.Stat(shmDir); err == nil && info.IsDir() {
		return filepath.Join(shmDir, name[1:])
	}
	return filepath.Join(os.TempDir(), name[1:])
}

// Create allocates a new segment of exactly size bytes under name and maps
// it. It fails if a segment with that name already exists.
func Create(name string, size int) (*Segment, error) {
	if err := checkArgs(name, size); err != nil {
		return nil, err
	}
	path := segmentPath(name)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared memory %s: %w", path, err)
	}
	// The mapping stays valid after the descriptor is closed.
	defer unix.Close(fd)

	cleanup := func() {
		if err := unix.Unlink(path); err != nil {
			log.Errorf("Failed to remove shared memory %s: %v", path, err)
		}
	}

	if err = unix.Ftruncate(fd, int64(size)); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to resize shared memory %s: %w", path, err)
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to map shared memory %s: %w", path, err)
	}

	log.Debugf("Created shared memory %s (%d bytes)", path, size)
	return &Segment{
		name:    name,
		mem:     mem,
		created: true,
		sys:     sysSegment{path: path},
	}, nil
}

// Open maps an existing segment created by another process. The segment
// must be exactly size bytes.
func Open(name string, size int) (*Segment, error) {
	if err := checkArgs(name, size); err != nil {
		return nil, err
	}
	path := segmentPath(name)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open shared memory %s: %w", path, err)
	}
	defer unix.Close(fd)

	var stat unix.Stat_t
	if err = unix.Fstat(fd, &stat); err != nil {
		return nil, fmt.Errorf("failed to stat shared memory %s: %w", path, err)
	}
	if stat.Size != int64(size) {
		return nil, fmt.Errorf("%w: %s has %d bytes, expected %d",
			ErrSize, path, stat.Size, size)
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to map shared memory %s: %w", path, err)
	}

	log.Debugf("Opened shared memory %s (%d bytes)", path, size)
	return &Segment{
		name: name,
		mem:  mem,
		sys:  sysSegment{path: path},
	}, nil
}

// Close unmaps the segment. The name stays valid until Unlink.
func (s *Segment) Close() error {
	if s.mem == nil {
		return nil
	}
	err := unix.Munmap(s.mem)
	s.mem = nil
	if err != nil {
		return fmt.Errorf("failed to unmap shared memory %s: %w", s.sys.path, err)
	}
	return nil
}

// Unlink removes the segment name so no further process can open it.
// Existing mappings stay valid. Removing an already removed name succeeds.
func (s *Segment) Unlink() error {
	if err := unix.Unlink(s.sys.path); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("failed to remove shared memory %s: %w", s.sys.path, err)
	}
	return nil
}
