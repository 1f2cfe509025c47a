// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/shmtrace/event"
)

func sampleEvents() []event.Event {
	return []event.Event{
		event.Make(event.KindThreadResume, 1, 3),
		event.Make(event.KindCall, 2, 0xdeadbeef),
		event.Make(event.KindGCStart, 3, 0),
		event.Make(event.KindGCEnd, 4, 0),
		event.Make(event.KindReturn, event.TimestampMask, 0xdeadbeef),
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	events := sampleEvents()
	require.NoError(t, w.Write(events[:2]))
	require.NoError(t, w.Write(nil))
	require.NoError(t, w.Write(events[2:]))
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(len(events)*event.Size), w.Bytes())

	got, err := ReadAll(&buf)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestBytesDuringWrite(t *testing.T) {
	w, err := NewWriter(io.Discard)
	require.NoError(t, err)

	const rounds = 1000
	events := sampleEvents()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range rounds {
			assert.NoError(t, w.Write(events))
		}
	}()

	var last uint64
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		n := w.Bytes()
		require.GreaterOrEqual(t, n, last)
		last = n
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(rounds*len(events)*event.Size), w.Bytes())
}

func TestEmptyCapture(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := ReadAll(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.shmtrc")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleEvents()))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range sampleEvents() {
		e, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want, e)
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLayout(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Write([]event.Event{{Header: 0x0102030405060708, Payload: 9}}))
	require.NoError(t, w.Close())

	dec, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	require.NoError(t, err)

	want := append([]byte(Magic),
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x09, 0, 0, 0, 0, 0, 0, 0)
	assert.Equal(t, want, raw)
}

func TestBadMagic(t *testing.T) {
	tests := map[string][]byte{
		"wrong magic": []byte("SHMTRC99"),
		"short":       []byte("SHM"),
		"empty":       nil,
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			enc, err := zstd.NewWriter(&buf)
			require.NoError(t, err)
			_, err = enc.Write(payload)
			require.NoError(t, err)
			require.NoError(t, enc.Close())

			_, err = ReadAll(&buf)
			require.ErrorIs(t, err, ErrBadMagic)
		})
	}
}

func TestTruncatedEvent(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write(append([]byte(Magic), 1, 2, 3))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, err = ReadAll(&buf)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
