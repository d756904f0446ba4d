// Package debug emits per-call trace output when a caller enables it. The
// output goes to the global sugared zap logger at debug level.
package debug

import (
	"time"

	"go.uber.org/zap"
)

// Output logs a formatted trace line if enabled.
func Output(enabled bool, format string, args ...interface{}) {
	if enabled {
		zap.S().Debugf(format, args...)
	}
}

// Timing measures and logs execution time if enabled. Call the returned
// function when the operation completes.
func Timing(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	Output(enabled, "Starting: %s", operation)

	return func() {
		zap.S().Debugw("Completed: "+operation, "took", time.Since(start))
	}
}
