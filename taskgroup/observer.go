package taskgroup

import (
	"context"
	"time"
)

// Observer receives group lifecycle events. Implementations must be
// cheap and must not call back into the group. All methods may be
// invoked from whatever goroutine the scheduler runs callbacks on.
type Observer interface {
	// GroupOpened fires when a group is entered by its owner task.
	GroupOpened(ctx context.Context)

	// GroupAborted fires once, when the group first decides to cancel
	// all live children. cause is the triggering error.
	GroupAborted(ctx context.Context, cause error)

	// GroupClosed fires after the final outcome has been computed.
	// wait is the time spent draining the live child set.
	GroupClosed(ctx context.Context, outcome error, wait time.Duration)

	// TaskSpawned fires when a child is registered with the group.
	TaskSpawned(ctx context.Context, name string)

	// TaskDone fires when a child reaches a terminal state. err is the
	// child's terminal error, sched.ErrCancelled for cancelled children,
	// or nil.
	TaskDone(ctx context.Context, name string, err error)

	// OrphanedFailure fires when a child fails after the owner task has
	// already finished. The failure cannot be delivered anywhere, so it
	// is surfaced here instead of being dropped.
	OrphanedFailure(ctx context.Context, name string, err error)
}

type nopObserver struct{}

func (nopObserver) GroupOpened(context.Context)                          {}
func (nopObserver) GroupAborted(context.Context, error)                  {}
func (nopObserver) GroupClosed(context.Context, error, time.Duration)    {}
func (nopObserver) TaskSpawned(context.Context, string)                  {}
func (nopObserver) TaskDone(context.Context, string, error)              {}
func (nopObserver) OrphanedFailure(context.Context, string, error)       {}
