// Package sched defines the contract between a task group and the
// runtime that actually executes tasks. The core state machine in
// package taskgroup is written purely against these interfaces; package
// coop provides a single-threaded cooperative implementation and package
// parallel a goroutine-backed one.
package sched

import (
	"context"
	"errors"
)

// TaskFunc is the unit of work a runtime executes. The context carries
// the task's identity (recoverable via Scheduler.Current) and whatever
// execution context the spawner attached.
type TaskFunc func(ctx context.Context) error

// ErrCancelled is delivered to a task at its next suspension point after
// cancellation has been requested. A task that returns an error matching
// ErrCancelled finishes in the cancelled state.
var ErrCancelled = errors.New("task cancelled")

// ErrShutdown is delivered at suspension points once the runtime is
// tearing down. It belongs to the severe error class: a group that
// observes it reports it alone, discarding ordinary failures.
var ErrShutdown = errors.New("runtime shutting down")

// Task is a handle to a spawned unit of work. Handles are comparable and
// borrowed: holding one does not keep the task alive in the runtime.
type Task interface {
	// Name returns the task's display name.
	Name() string

	// SetName sets the task's display name.
	SetName(name string)

	// Done reports whether the task reached a terminal state.
	Done() bool

	// Cancelled reports whether the task finished by cancellation.
	Cancelled() bool

	// Err returns the task's terminal error, or nil. Only valid once
	// Done reports true.
	Err() error

	// Cancel requests cooperative cancellation. Each call increments the
	// task's outstanding-cancellation count; delivery happens at the
	// task's next suspension point.
	Cancel()

	// Uncancel consumes one outstanding cancellation request and returns
	// the number still pending.
	Uncancel() int

	// OnDone registers fn to run exactly once when the task reaches a
	// terminal state. If the task is already done, fn runs immediately.
	OnDone(fn func())
}

// Signal is a one-shot completion signal. Wait suspends the calling task
// until Set is called; it returns ErrCancelled or ErrShutdown if the
// suspension is interrupted instead.
type Signal interface {
	// Set fires the signal, waking all waiters. Idempotent.
	Set()

	// Wait suspends the task identified by ctx until the signal fires.
	Wait(ctx context.Context) error
}

// Scheduler spawns tasks and resolves task identity from a context. It
// is injected into a task group rather than reached through a global so
// groups can be driven by any runtime, including test fakes.
type Scheduler interface {
	// Spawn starts fn as a new task whose context derives from ctx.
	Spawn(ctx context.Context, fn TaskFunc) Task

	// Current returns the task executing the code that owns ctx, or nil
	// when ctx does not belong to a task.
	Current(ctx context.Context) Task

	// NewSignal creates a one-shot completion signal.
	NewSignal() Signal
}
