//go:build windows

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package shm // import "go.opentelemetry.io/shmtrace/shm"

import (
	"fmt"
	"strings"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// namePrefix places the mapping in the session-local kernel namespace.
const namePrefix = `Local\`

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = modkernel32.NewProc("OpenFileMappingW")
)

type sysSegment struct {
	handle windows.Handle
	addr   uintptr
}

func checkName(name string) error {
	if strings.Contains(strings.TrimPrefix(name, namePrefix), `\`) {
		return fmt.Errorf("%w: %q", ErrName, name)
	}
	return nil
}

// Create allocates a new pagefile-backed mapping of exactly size bytes under
// name and maps it.
func Create(name string, size int) (*Segment, error) {
	if err := checkArgs(name, size); err != nil {
		return nil, err
	}
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrName, err)
	}

	handle, err := windows.CreateFileMapping(windows.InvalidHandle, nil,
		windows.PAGE_READWRITE, uint32(uint64(size)>>32), uint32(size), namePtr)
	if err != nil {
		if handle != 0 {
			windows.CloseHandle(handle)
		}
		return nil, fmt.Errorf("failed to create shared memory %s: %w", name, err)
	}

	seg, err := mapView(name, handle, size)
	if err != nil {
		return nil, err
	}
	seg.created = true
	log.Debugf("Created shared memory %s (%d bytes)", name, size)
	return seg, nil
}

// Open maps an existing mapping created by another process.
func Open(name string, size int) (*Segment, error) {
	if err := checkArgs(name, size); err != nil {
		return nil, err
	}
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrName, err)
	}

	r1, _, e1 := procOpenFileMappingW.Call(
		uintptr(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE), 0,
		uintptr(unsafe.Pointer(namePtr)))
	if r1 == 0 {
		return nil, fmt.Errorf("failed to open shared memory %s: %w", name, e1)
	}

	seg, err := mapView(name, windows.Handle(r1), size)
	if err != nil {
		return nil, err
	}

	var info windows.MemoryBasicInformation
	if err = windows.VirtualQuery(seg.sys.addr, &info, unsafe.Sizeof(info)); err == nil &&
		info.RegionSize < uintptr(size) {
		_ = seg.Close()
		return nil, fmt.Errorf("%w: %s has %d bytes, expected %d",
			ErrSize, name, info.RegionSize, size)
	}

	log.Debugf("Opened shared memory %s (%d bytes)", name, size)
	return seg, nil
}

func mapView(name string, handle windows.Handle, size int) (*Segment, error) {
	addr, err := windows.MapViewOfFile(handle,
		windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("failed to map shared memory %s: %w", name, err)
	}
	return &Segment{
		name: name,
		mem:  unsafe.Slice((*byte)(unsafe.Pointer(addr)), size),
		sys:  sysSegment{handle: handle, addr: addr},
	}, nil
}

// Close unmaps the view and releases the mapping handle. Windows removes the
// mapping once the last handle to it is closed.
func (s *Segment) Close() error {
	if s.mem == nil {
		return nil
	}
	s.mem = nil
	err := windows.UnmapViewOfFile(s.sys.addr)
	if cerr := windows.CloseHandle(s.sys.handle); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to release shared memory %s: %w", s.name, err)
	}
	return nil
}

// Unlink is a no-op: mapping names vanish with their last handle.
func (s *Segment) Unlink() error {
	return nil
}
