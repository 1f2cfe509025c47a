// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// shmtrace is the reference consumer of a producer session. It is started
// by the producer with the name of the shared segment as its last argument.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/shmtrace/internal/controller"
	"go.opentelemetry.io/shmtrace/vc"
)

type exitCode int

const (
	exitSuccess exitCode = controller.ExitSuccess
	exitFailure exitCode = controller.ExitFailure

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = controller.ExitParseError
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func mainWithExitCode() exitCode {
	cfg, err := parseArgs(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		return parseError("Failure to parse arguments: %v", err)
	}

	if cfg.Version {
		fmt.Printf("%s\n", vc.String())
		return exitSuccess
	}

	if cfg.VerboseMode {
		log.SetLevel(log.DebugLevel)
		// Dump the arguments in debug mode.
		cfg.Dump()
	}

	// The producer stops the consumer with SIGTERM when it closes its session.
	mainCtx, mainCancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer mainCancel()

	log.Infof("Starting shmtrace consumer %s", vc.String())

	var opts []controller.Option
	if cfg.VerboseMode {
		opts = append(opts, controller.WithMetricsReporter(&controller.LogReporter{}))
	}
	ctlr := controller.New(cfg, opts...)

	if err = ctlr.Start(mainCtx); err != nil {
		if serr := ctlr.Shutdown(); serr != nil {
			log.Errorf("Failed to shut down: %v", serr)
		}
		var exitErr controller.ErrorWithExitCode
		if errors.As(err, &exitErr) {
			log.Errorf("Invalid configuration: %v", err)
			return exitCode(exitErr.Code())
		}
		return failure("Failed to start: %v", err)
	}

	// Block until a signal arrives or the producer exits.
	waitErr := ctlr.Wait()
	if err = ctlr.Shutdown(); err != nil {
		return failure("Failed to shut down: %v", err)
	}
	if waitErr != nil {
		return failure("Consumer failed: %v", waitErr)
	}

	log.Info("Exiting ...")
	return exitSuccess
}

func parseError(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
