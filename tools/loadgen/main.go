// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// loadgen drives a producer session with synthetic call trees from a number
// of goroutines that act as logical threads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/shmtrace/ringbuffer"
	"go.opentelemetry.io/shmtrace/session"
	"go.opentelemetry.io/shmtrace/util"
)

type worker int

type options struct {
	capacity           uint64
	consumer           string
	depth              int
	duration           time.Duration
	gcEvery            int
	livenessCheckEvery int
	methods            int
	record             string
	units              int
	verbose            bool
}

func parseArgs(arguments []string) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("loadgen", flag.ContinueOnError)

	fs.Uint64Var(&opts.capacity, "capacity", ringbuffer.DefaultCapacity,
		"Number of event slots of the ring.")
	fs.StringVar(&opts.consumer, "consumer", "shmtrace", "Path of the consumer executable.")
	fs.IntVar(&opts.depth, "depth", 8, "Maximum depth of the synthetic call trees.")
	fs.DurationVar(&opts.duration, "duration", 5*time.Second, "How long to produce events.")
	fs.IntVar(&opts.gcEvery, "gc-every", 1000,
		"Emit a GC bracket after this many call trees. Zero disables GCs.")
	fs.IntVar(&opts.livenessCheckEvery, "liveness-check-every",
		session.DefaultLivenessCheckEvery,
		"Failed push attempts between two consumer liveness checks.")
	fs.IntVar(&opts.methods, "methods", 64, "Number of distinct method IDs.")
	fs.StringVar(&opts.record, "record", "", "Ask the consumer to record events to this file.")
	fs.IntVar(&opts.units, "units", 4, "Number of concurrent logical threads.")
	fs.BoolVar(&opts.verbose, "v", false, "Enable verbose logging.")

	if err := ff.Parse(fs, arguments, ff.WithEnvVarPrefix("SHMTRACE_LOADGEN")); err != nil {
		return nil, err
	}
	if opts.capacity == 0 {
		return nil, errors.New("capacity must be positive")
	}
	if !util.IsPowerOfTwo(opts.capacity) && opts.capacity <= math.MaxUint32/2 {
		rounded := uint64(util.NextPowerOfTwo(uint32(opts.capacity)))
		log.Warnf("Rounding capacity %d up to %d", opts.capacity, rounded)
		opts.capacity = rounded
	}
	if opts.units <= 0 || opts.methods <= 0 || opts.depth <= 0 {
		return nil, errors.New("units, methods and depth must be positive")
	}
	return &opts, nil
}

func tryMain() error {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	args := []string{"-capacity=" + strconv.FormatUint(opts.capacity, 10)}
	if opts.record != "" {
		args = append(args, "-record="+opts.record)
	}
	if opts.verbose {
		args = append(args, "-v")
	}

	s, err := session.New(ctx, &session.Config{
		ConsumerPath:       opts.consumer,
		ConsumerArgs:       args,
		Capacity:           opts.capacity,
		LivenessCheckEvery: opts.livenessCheckEvery,
		OriginUnit:         worker(0),
	})
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(ctx, opts.duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 1; i <= opts.units; i++ {
		wg.Add(1)
		go func(w worker) {
			defer wg.Done()
			run(ctx, s, w, opts)
		}(worker(i))
	}
	wg.Wait()
	elapsed := time.Since(start)

	if err = s.Close(); err != nil {
		log.Warnf("Failed to close session: %v", err)
	}

	st := s.Stats()
	log.Infof("Pushed %d events in %v (%.0f/s), %d dropped, %d retries, %d liveness checks",
		st.Pushed, elapsed, float64(st.Pushed)/elapsed.Seconds(), st.Dropped, st.Retries,
		st.LivenessChecks)
	if st.State == session.StateDisabled && ctx.Err() == nil {
		return fmt.Errorf("session was disabled after the consumer exited")
	}
	return nil
}

// run emits the lifecycle of one logical thread with call trees in between
// until ctx is done or the session is disabled.
func run(ctx context.Context, s *session.Session, w worker, opts *options) {
	rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))

	s.ThreadStart(w)
	s.ThreadReady(w)
	for trees := 1; ctx.Err() == nil && s.State() == session.StateActive; trees++ {
		s.ThreadResume(w)
		callTree(s, rng, opts.methods, 1+rng.IntN(opts.depth))
		if opts.gcEvery > 0 && trees%opts.gcEvery == 0 {
			s.GCStart()
			s.GCEnd()
		}
		s.ThreadSuspended(w)
		s.ThreadReady(w)
	}
	s.ThreadExit(w)
}

func callTree(s *session.Session, rng *rand.Rand, methods, depth int) {
	method := uint64(rng.IntN(methods))
	s.Call(method)
	if depth > 1 {
		for range 1 + rng.IntN(2) {
			callTree(s, rng, methods, depth-1)
		}
	}
	s.Return(method)
}

func main() {
	if err := tryMain(); errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
