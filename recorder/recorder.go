// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder writes and reads capture files of raw events.
//
// A capture file is a zstd stream of the 8 byte magic "SHMTRC01" followed
// by events in the 16 byte little endian layout of the shared ring.
package recorder // import "go.opentelemetry.io/shmtrace/recorder"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	"go.opentelemetry.io/shmtrace/event"
)

// Magic starts every capture file.
const Magic = "SHMTRC01"

// ErrBadMagic is returned when a stream does not start with Magic.
var ErrBadMagic = errors.New("not a capture file")

// Writer appends events to a capture stream.
type Writer struct {
	enc    *zstd.Encoder
	closer io.Closer
	buf    []byte
	// bytes is read concurrently with Write by metric collection.
	bytes atomic.Uint64
}

// NewWriter starts a capture stream on w.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err = enc.Write([]byte(Magic)); err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &Writer{enc: enc}, nil
}

// Create creates or truncates the capture file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Write appends events to the stream.
func (w *Writer) Write(events []event.Event) error {
	need := len(events) * event.Size
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	buf := w.buf[:need]
	for i, e := range events {
		off := i * event.Size
		binary.LittleEndian.PutUint64(buf[off:], e.Header)
		binary.LittleEndian.PutUint64(buf[off+8:], e.Payload)
	}
	n, err := w.enc.Write(buf)
	w.bytes.Add(uint64(n))
	return err
}

// Bytes returns the number of uncompressed event bytes written. It is safe
// to call concurrently with Write.
func (w *Writer) Bytes() uint64 {
	return w.bytes.Load()
}

// Close flushes the stream, and closes the file if the Writer was created
// by Create.
func (w *Writer) Close() error {
	err := w.enc.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader reads events from a capture stream.
type Reader struct {
	dec    *zstd.Decoder
	closer io.Closer
	buf    [event.Size]byte
}

// NewReader checks the magic of the capture stream in r.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	var magic [len(Magic)]byte
	if _, err = io.ReadFull(dec, magic[:]); err != nil || string(magic[:]) != Magic {
		dec.Close()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
		}
		return nil, ErrBadMagic
	}
	return &Reader{dec: dec}, nil
}

// Open opens the capture file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next returns the next event. It returns io.EOF after the last event and
// io.ErrUnexpectedEOF if the stream ends inside an event.
func (r *Reader) Next() (event.Event, error) {
	if _, err := io.ReadFull(r.dec, r.buf[:]); err != nil {
		return event.Event{}, err
	}
	return event.Event{
		Header:  binary.LittleEndian.Uint64(r.buf[:8]),
		Payload: binary.LittleEndian.Uint64(r.buf[8:]),
	}, nil
}

// Close releases the decoder, and closes the file if the Reader was
// created by Open.
func (r *Reader) Close() error {
	r.dec.Close()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// ReadAll reads all events of the capture stream in r.
func ReadAll(r io.Reader) ([]event.Event, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	var events []event.Event
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}
