// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"

	"go.opentelemetry.io/shmtrace/internal/controller"
	"go.opentelemetry.io/shmtrace/ringbuffer"
	"go.opentelemetry.io/shmtrace/times"
	"go.opentelemetry.io/shmtrace/tracestate"
)

const (
	// Default values for CLI flags
	defaultArgBatchSize = 4096
)

// Help strings for command line arguments
var (
	batchSizeHelp = "Maximum number of events read from the ring at once."
	capacityHelp  = "Number of event slots of the ring. Must match the producer and be " +
		"a power of two."
	configHelp          = "Path to a configuration file with one 'flag value' per line."
	drainPollHelp       = "Back-off of the drain loop while the ring is empty."
	keepSegmentHelp     = "Do not unlink the shared segment after mapping it."
	monitorIntervalHelp = "Set the interval of metric collection and summaries."
	parentCheckHelp     = "Set the interval at which the exit of the producer is checked."
	recordHelp          = "Write all events to this zstd compressed capture file."
	stackCacheSizeHelp  = "Number of distinct call stacks whose aggregates are kept."
	verboseModeHelp     = "Enable verbose logging and debugging capabilities."
	versionHelp         = "Show version."
)

var errNoSegment = errors.New("missing segment name argument")

func parseArgs(arguments []string) (*controller.Config, error) {
	var args controller.Config

	fs := flag.NewFlagSet("shmtrace", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.IntVar(&args.BatchSize, "batch-size", defaultArgBatchSize, batchSizeHelp)

	fs.Uint64Var(&args.Capacity, "capacity", ringbuffer.DefaultCapacity, capacityHelp)
	fs.StringVar(&args.ConfigFile, "config", "", configHelp)

	fs.DurationVar(&args.DrainPollInterval, "drain-poll-interval",
		times.DefaultDrainPollInterval, drainPollHelp)

	fs.BoolVar(&args.KeepSegment, "keep-segment", false, keepSegmentHelp)

	fs.DurationVar(&args.MonitorInterval, "monitor-interval", times.DefaultMonitorInterval,
		monitorIntervalHelp)

	fs.DurationVar(&args.ParentCheckInterval, "parent-check-interval",
		times.DefaultParentCheckInterval, parentCheckHelp)

	fs.StringVar(&args.RecordPath, "record", "", recordHelp)

	fs.UintVar(&args.StackCacheSize, "stack-cache-size", tracestate.DefaultStackCacheSize,
		stackCacheSizeHelp)

	fs.BoolVar(&args.VerboseMode, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.VerboseMode, "verbose", false, verboseModeHelp)
	fs.BoolVar(&args.Version, "version", false, versionHelp)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <segment-name>\n", fs.Name())
		fs.PrintDefaults()
	}

	args.Fs = fs

	err := ff.Parse(fs, arguments,
		ff.WithEnvVarPrefix("SHMTRACE"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current
		// version does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
		if !args.Version {
			return nil, errNoSegment
		}
	case 1:
		args.SegmentName = fs.Arg(0)
	default:
		return nil, fmt.Errorf("unexpected arguments after segment name: %v", fs.Args()[1:])
	}
	return &args, nil
}
