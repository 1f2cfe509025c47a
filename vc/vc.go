// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package vc provides build time information, set at link time with
//
//	-ldflags "-X go.opentelemetry.io/shmtrace/vc.version=..."
package vc // import "go.opentelemetry.io/shmtrace/vc"

import "fmt"

var (
	// revision is the VCS revision the binary was built from.
	revision = ""
	// buildTimestamp is the time of the build.
	buildTimestamp = ""
	// version in vX.Y.Z{-N-abbrev} format (via git-describe --tags)
	version = ""
)

// Revision of the build.
func Revision() string {
	return revision
}

// BuildTimestamp returns the timestamp of the build.
func BuildTimestamp() string {
	return buildTimestamp
}

// Version in vX.Y.Z{-N-abbrev} format.
func Version() string {
	if version == "" {
		return "dev"
	}
	return version
}

// String returns a one-line summary of the build information.
func String() string {
	return fmt.Sprintf("%s (revision: %s, build timestamp: %s)",
		Version(), Revision(), BuildTimestamp())
}
