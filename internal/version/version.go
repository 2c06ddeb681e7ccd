// SPDX-License-Identifier: MIT

package version

var (
	// Version is the release string, overridden at build time via ldflags.
	Version = "v1.4.2"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
