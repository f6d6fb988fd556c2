// Package scheduler provides the single serialized execution context that
// owns all wager and arena state, plus a deterministic stand-in for tests.
package scheduler

import "time"

// Task is a handle to delayed or repeating work
type Task interface {
	Cancel()
	Cancelled() bool
}

// Scheduler runs work on the main context
type Scheduler interface {
	// RunNow queues fn to run on the main context
	RunNow(fn func())

	// RunAfter queues fn to run on the main context once d has elapsed
	RunAfter(d time.Duration, fn func()) Task

	// RunPeriodic runs fn on the main context every interval, starting one interval from now.
	// The task handle is passed to fn so it can cancel itself.
	RunPeriodic(interval time.Duration, fn func(Task)) Task

	// RunAsync runs fn off the main context. fn must not touch state owned by the main context.
	RunAsync(fn func())
}
