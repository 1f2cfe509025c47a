//go:build linux || darwin || freebsd || netbsd || openbsd

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package shm

import (
	"fmt"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("/shmtrace_test_%d_%s", os.Getpid(), regexp.MustCompile(`\W`).
		ReplaceAllString(t.Name(), "_"))
}

func TestGenerateName(t *testing.T) {
	name := GenerateName()
	assert.Regexp(t, fmt.Sprintf(`^/shmtrace_%d_\d+$`, os.Getpid()), name)
	require.NoError(t, checkArgs(name, 1))
	assert.NotEqual(t, name, GenerateName())
}

func TestCheckArgs(t *testing.T) {
	tests := map[string]struct {
		name string
		size int
		err  error
	}{
		"valid":         {name: "/abc", size: 64},
		"zero size":     {name: "/abc", size: 0, err: ErrSize},
		"negative size": {name: "/abc", size: -1, err: ErrSize},
		"empty name":    {name: "", size: 64, err: ErrName},
		"no slash":      {name: "abc", size: 64, err: ErrName},
		"nested slash":  {name: "/a/b", size: 64, err: ErrName},
		"control char":  {name: "/a\nb", size: 64, err: ErrName},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := checkArgs(tc.name, tc.size)
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCreateOpenShareMemory(t *testing.T) {
	name := testName(t)
	const size = 4096

	producer, err := Create(name, size)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = producer.Close()
		_ = producer.Unlink()
	})
	assert.True(t, producer.Created())
	assert.Equal(t, name, producer.Name())
	require.Equal(t, size, producer.Size())

	consumer, err := Open(name, size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = consumer.Close() })
	assert.False(t, consumer.Created())

	producer.Bytes()[0] = 0xAB
	producer.Bytes()[size-1] = 0xCD
	assert.Equal(t, byte(0xAB), consumer.Bytes()[0])
	assert.Equal(t, byte(0xCD), consumer.Bytes()[size-1])

	consumer.Bytes()[1] = 0xEF
	assert.Equal(t, byte(0xEF), producer.Bytes()[1])
}

func TestCreateExisting(t *testing.T) {
	name := testName(t)
	seg, err := Create(name, 64)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = seg.Close()
		_ = seg.Unlink()
	})

	_, err = Create(name, 64)
	require.Error(t, err)
}

func TestOpenSizeMismatch(t *testing.T) {
	name := testName(t)
	seg, err := Create(name, 128)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = seg.Close()
		_ = seg.Unlink()
	})

	_, err = Open(name, 256)
	require.ErrorIs(t, err, ErrSize)
	_, err = Open(name, 64)
	require.ErrorIs(t, err, ErrSize)
}

func TestUnlink(t *testing.T) {
	name := testName(t)
	seg, err := Create(name, 64)
	require.NoError(t, err)

	seg.Bytes()[0] = 1
	require.NoError(t, seg.Unlink())
	// Still mapped after the name is gone.
	assert.Equal(t, byte(1), seg.Bytes()[0])
	// Unlinking twice is fine.
	require.NoError(t, seg.Unlink())

	_, err = Open(name, 64)
	require.Error(t, err)

	require.NoError(t, seg.Close())
	assert.Nil(t, seg.Bytes())
	require.NoError(t, seg.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(testName(t), 64)
	require.Error(t, err)
}
