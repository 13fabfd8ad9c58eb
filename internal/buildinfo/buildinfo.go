// Package buildinfo exposes build metadata each worker binary logs once at
// startup (SPEC_FULL.md §10).
package buildinfo

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns build metadata in the startup log line's format.
func String(binaryName string) string {
	return binaryName + " " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
