// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "go.opentelemetry.io/shmtrace/internal/controller"

// Exit codes of the consumer binary.
const (
	ExitSuccess = 0
	ExitFailure = 1
	// ExitParseError matches the code the flag package exits with on
	// parse errors.
	ExitParseError = 2
)

// ErrorWithExitCode provides an error with an exit code
// Used to be able to return errors with the exit code the CLI is expected to
// return when exiting.
type ErrorWithExitCode struct {
	error
	code int
}

func (e ErrorWithExitCode) Code() int {
	return e.code
}

func (e ErrorWithExitCode) Unwrap() error {
	return e.error
}
