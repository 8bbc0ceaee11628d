// Package periodic factors the drift-free fixed-period loop scheme used by
// both the simulation stepper and each board's task threads: capture a
// starting timestamp, run the callback, advance the target by one period,
// and sleep until the new target. Missed deadlines are absorbed by a
// sleep-zero burst rather than causing long-term phase drift.
package periodic

import (
	"sync/atomic"
	"time"
)

// Run executes fn once per period until running reports false, observed at
// the top of every iteration. It returns once fn will no longer be called
// again.
func Run(running *atomic.Bool, period time.Duration, fn func()) {
	next := time.Now()

	for running.Load() {
		fn()
		next = next.Add(period)

		sleep := time.Until(next)
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
}
