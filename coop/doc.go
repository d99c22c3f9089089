// Package coop is a single-threaded cooperative runtime implementing
// the sched contract. At most one task executes at any instant: the
// loop and task goroutines pass a baton over unbuffered channels, so
// tasks interleave only at explicit suspension points ([Yield],
// [sched.Signal] waits) and never run in parallel.
//
// Cancellation is cooperative. A cancel request takes effect at the
// target's next suspension point, where it surfaces as
// [sched.ErrCancelled]; repeated requests are tracked as an outstanding
// count that [sched.Task.Uncancel] decrements.
//
// Scheduling is deterministic: tasks become runnable in FIFO order, so
// a given program interleaves the same way on every run. That makes the
// loop suitable both as a production runtime for cooperative pipelines
// and as a deterministic harness for testing group semantics.
package coop
