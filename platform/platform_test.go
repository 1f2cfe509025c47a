//go:build linux || darwin || freebsd || netbsd || openbsd

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeSegment(t *testing.T) {
	p := Native()
	name := p.SegmentName()

	created, err := p.CreateSegment(name, 4096)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, created.Close())
		require.NoError(t, created.Unlink())
	}()
	assert.Equal(t, name, created.Name())
	assert.Len(t, created.Bytes(), 4096)

	_, err = p.CreateSegment(name, 4096)
	require.Error(t, err)

	opened, err := p.OpenSegment(name, 4096)
	require.NoError(t, err)
	defer opened.Close()

	created.Bytes()[10] = 0x5a
	assert.Equal(t, byte(0x5a), opened.Bytes()[10])
}

func TestNativeOpenMissing(t *testing.T) {
	seg, err := Native().OpenSegment(Native().SegmentName(), 4096)
	require.Error(t, err)
	assert.Nil(t, seg)
}

func TestNativeSpawnMissing(t *testing.T) {
	c, err := Native().SpawnConsumer(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.Nil(t, c)
}
