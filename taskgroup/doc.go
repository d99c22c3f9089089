// Package taskgroup implements a structured-concurrency scope: an owner
// task opens a [Group], spawns child tasks bound to it, and on close the
// group waits for every child before delivering a single deterministic
// outcome.
//
// The group itself runs no tasks. It is a state machine over the
// collaborator contract in package sched: any runtime that can spawn a
// task, report its terminal state, request cooperative cancellation, and
// provide a one-shot completion signal can drive a group. Package coop
// is a single-threaded cooperative runtime, package parallel a
// goroutine-backed one.
//
// # Running a group
//
// [Run] is the primary entry point. It opens a group on the current
// task, invokes the body, and closes the group when the body returns:
//
//	loop := coop.New()
//	err := loop.Main(ctx, func(ctx context.Context) error {
//	    return taskgroup.Run(ctx, loop, func(ctx context.Context, g *taskgroup.Group) error {
//	        g.Go(fetch, taskgroup.WithName("fetch"))
//	        g.Go(process, taskgroup.WithName("process"))
//	        return nil
//	    })
//	})
//
// For manual control, [New] plus [Group.Open], [Group.Go] and
// [Group.Close] expose the same lifecycle.
//
// # Outcomes
//
// Close waits until the live child set drains, then reports exactly one
// of, in priority order:
//
//   - a severe failure (a [*sched.PanicError] or [sched.ErrShutdown])
//     from any child or the owner body, alone, discarding ordinary
//     failures;
//   - the owner's own cancellation, re-raised once children drained,
//     provided no ordinary error was recorded;
//   - a [*GroupError] wrapping every ordinary failure in completion
//     order, losslessly;
//   - nil.
//
// The first child failure aborts the group: every live child is
// cancelled and one cancellation is requested on the owner. When the
// group closes it consumes exactly that one level of owner cancellation,
// so cancellations requested by others remain outstanding.
//
// # Misuse
//
// Re-opening a group, opening outside a task, or registering a child at
// the wrong lifecycle phase fails synchronously with [*StateError].
// StateError is never folded into a group outcome.
//
// # Observability
//
// [WithObserver] registers an [Observer] for lifecycle events. A child
// failure observed after the owner already finished has no recipient; it
// is surfaced through [Observer.OrphanedFailure] instead of being
// silently dropped.
package taskgroup
