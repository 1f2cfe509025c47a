// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// tracedump prints the events of a capture file written by the consumer and
// a summary of the call stacks they reconstruct.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/shmtrace/event"
	"go.opentelemetry.io/shmtrace/recorder"
	"go.opentelemetry.io/shmtrace/tracestate"
)

type options struct {
	events bool
	top    int
}

func tryMain() error {
	var opts options
	var in string

	flag.StringVar(&in, "i", "", "The capture file path")
	flag.BoolVar(&opts.events, "events", false, "Print every event")
	flag.IntVar(&opts.top, "top", 10, "Number of hottest stacks to print")
	flag.Parse()

	if in == "" {
		return errors.New("missing required argument `i`")
	}

	r, err := recorder.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer r.Close()

	return dump(r, os.Stdout, opts)
}

type eventSource interface {
	Next() (event.Event, error)
}

func dump(r eventSource, out io.Writer, opts options) error {
	state, err := tracestate.New(tracestate.DefaultStackCacheSize)
	if err != nil {
		return err
	}

	batch := make([]event.Event, 0, 1024)
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if opts.events {
			fmt.Fprintf(out, "%14v %v\n", time.Duration(e.TimestampDelta()), e)
		}
		batch = append(batch, e)
		if len(batch) == cap(batch) {
			state.Process(batch)
			batch = batch[:0]
		}
	}
	state.Process(batch)

	st := state.Stats()
	fmt.Fprintf(out, "events: %d invalid: %d orphaned: %d\n", st.Events, st.Invalid, st.Orphaned)
	fmt.Fprintf(out, "threads: %d started, %d exited\n", st.ThreadsStarted, st.ThreadsExited)
	fmt.Fprintf(out, "gc: %d taking %v\n", st.GCs, time.Duration(st.GCNs))
	for i, top := range state.Top(opts.top) {
		fmt.Fprintf(out, "#%d %v calls=%d inclusive=%v\n",
			i+1, top.Path, top.Calls, time.Duration(top.InclusiveNs))
	}
	return nil
}

func main() {
	if err := tryMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
