// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "go.opentelemetry.io/shmtrace/internal/controller"

import (
	"flag"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/shmtrace/ringbuffer"
)

// Config is the configuration of the consumer.
type Config struct {
	// SegmentName is the shared segment created by the producer.
	SegmentName string
	// Capacity is the ring capacity the producer was configured with.
	Capacity uint64
	// BatchSize is the maximum number of events read from the ring at once.
	BatchSize int
	// RecordPath is the capture file to write. Empty disables recording.
	RecordPath string
	// StackCacheSize is the number of distinct call stacks aggregated.
	StackCacheSize uint

	MonitorInterval     time.Duration
	DrainPollInterval   time.Duration
	ParentCheckInterval time.Duration

	// KeepSegment leaves the segment name in place after it was mapped.
	KeepSegment bool

	ConfigFile  string
	VerboseMode bool
	Version     bool

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	if cfg.Fs == nil {
		return
	}
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debug(fmt.Sprintf("%s: %v", f.Name, f.Value))
	})
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	if cfg.SegmentName == "" {
		return ErrorWithExitCode{fmt.Errorf("no segment name given"), ExitParseError}
	}
	if _, err := ringbuffer.Size(cfg.Capacity); err != nil {
		return ErrorWithExitCode{err, ExitParseError}
	}
	if cfg.BatchSize <= 0 {
		return ErrorWithExitCode{
			fmt.Errorf("batch size %d must be positive", cfg.BatchSize), ExitParseError}
	}
	if cfg.StackCacheSize == 0 || cfg.StackCacheSize > math.MaxUint32 {
		return ErrorWithExitCode{
			fmt.Errorf("stack cache size %d out of range [1,%d]",
				cfg.StackCacheSize, uint64(math.MaxUint32)), ExitParseError}
	}
	for name, d := range map[string]time.Duration{
		"monitor interval":      cfg.MonitorInterval,
		"drain poll interval":   cfg.DrainPollInterval,
		"parent check interval": cfg.ParentCheckInterval,
	} {
		if d <= 0 {
			return ErrorWithExitCode{fmt.Errorf("%s %v must be positive", name, d),
				ExitParseError}
		}
	}
	return nil
}
