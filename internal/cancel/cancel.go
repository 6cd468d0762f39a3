// Package cancel implements the process-wide cancellation flag described in
// spec §5 and §6: a trivial three-function façade over an atomic boolean.
// It generalizes the per-Interpreter atomic id/stop pattern the teacher
// (breadchris-yaegi's interp.Interpreter) uses for its own context
// cancellation into a single package-level flag, matching
// original_source/subset_julia_vm/src/cancel.rs's module-level shape.
package cancel

import "sync/atomic"

var requested atomic.Bool

// Request sets the process-wide cancellation flag. The VM's dispatch loop
// observes it between instructions (spec §5).
func Request() {
	requested.Store(true)
}

// Reset clears the cancellation flag.
func Reset() {
	requested.Store(false)
}

// IsRequested reports whether Request has been called since the last Reset.
func IsRequested() bool {
	return requested.Load()
}
