package taskgroup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

// Group is a structured-concurrency scope. It binds child tasks to the
// owner task that opened it and guarantees that Close never returns
// before every child finished.
//
// The zero value is not usable; create groups with [New]. A group is
// entered once, accepts children only while entered and not fully
// closed, and is discarded after Close delivered its outcome.
//
// All state is guarded by a mutex so the group works equally under a
// single-threaded cooperative scheduler and a multi-threaded one whose
// completion callbacks run on arbitrary goroutines.
type Group struct {
	sched sched.Scheduler
	obs   Observer

	mu       sync.Mutex
	entered  bool
	exiting  bool
	aborting bool
	closed   bool

	// owner is a borrowed reference to the task that opened the group.
	// The group must not keep the owner alive past its natural lifetime.
	owner sched.Task

	// ownerCancelRequested records that this group cancelled its own
	// owner to interrupt the body after a child failure. Close consumes
	// exactly one level of owner cancellation when it is set.
	ownerCancelRequested bool

	ctx         context.Context
	tasks       map[sched.Task]struct{}
	errs        []error
	severeErr   error
	onCompleted sched.Signal
}

// New creates a group driven by s. The group is unentered; call
// [Group.Open] from inside a task, or use [Run].
func New(s sched.Scheduler, opts ...Option) *Group {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	obs := o.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Group{
		sched: s,
		obs:   obs,
		tasks: make(map[sched.Task]struct{}),
	}
}

// Open enters the group. ctx must identify the calling task; the task
// becomes the group's owner and drives draining when the group closes.
// Open fails with [*StateError] if the group was already entered or ctx
// does not belong to a task.
func (g *Group) Open(ctx context.Context) error {
	g.mu.Lock()
	if g.entered {
		g.mu.Unlock()
		return &StateError{Reason: "group has already been entered"}
	}
	owner := g.sched.Current(ctx)
	if owner == nil {
		g.mu.Unlock()
		return &StateError{Reason: "group must be opened from inside a task"}
	}
	g.entered = true
	g.owner = owner
	g.ctx = ctx
	g.mu.Unlock()

	g.obs.GroupOpened(ctx)
	return nil
}

// Go registers a new child task running fn. It fails with [*StateError]
// if the group is not entered, already finished (exiting with no live
// children), or aborting.
//
// A child that reaches a terminal state before Go returns never enters
// the live set; its completion is routed through the same path as an
// asynchronous completion, so an eager failure is already recorded when
// Go returns.
func (g *Group) Go(fn sched.TaskFunc, opts ...SpawnOption) (sched.Task, error) {
	var o SpawnOptions
	for _, opt := range opts {
		opt(&o)
	}

	g.mu.Lock()
	switch {
	case !g.entered:
		g.mu.Unlock()
		return nil, &StateError{Reason: "group has not been entered"}
	case g.exiting && len(g.tasks) == 0:
		g.mu.Unlock()
		return nil, &StateError{Reason: "group is finished"}
	case g.aborting:
		g.mu.Unlock()
		return nil, &StateError{Reason: "group is shutting down"}
	}
	ctx := g.ctx
	if o.Context != nil {
		ctx = o.Context
	}
	g.mu.Unlock()

	t := g.sched.Spawn(ctx, fn)
	if o.Name != "" {
		t.SetName(o.Name)
	}
	g.obs.TaskSpawned(ctx, t.Name())

	if t.Done() {
		g.onTaskDone(t)
		return t, nil
	}

	g.mu.Lock()
	g.tasks[t] = struct{}{}
	g.mu.Unlock()
	t.OnDone(func() { g.onTaskDone(t) })
	return t, nil
}

// Active returns the number of live children.
func (g *Group) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

// Close exits the group. origin is the outcome of the owner's body: nil
// for normal completion, an error matching [sched.ErrCancelled] when the
// body was cancelled, or any other error for a failure.
//
// Close cancels every live child if origin is non-nil, then suspends the
// owner until the live set drains, tolerating repeated cancellation of
// the wait, and finally computes the single group outcome. A second
// Close fails with [*StateError].
func (g *Group) Close(origin error) error {
	g.mu.Lock()
	if !g.entered {
		g.mu.Unlock()
		return &StateError{Reason: "group has not been entered"}
	}
	if g.closed {
		g.mu.Unlock()
		return &StateError{Reason: "group is already closed"}
	}
	g.exiting = true
	ctx := g.ctx
	start := time.Now()

	// A cancellation origin is remembered for propagation once the
	// children drain, unless the bookkeeping below rescinds it.
	var propagateCancel error
	if origin != nil && errors.Is(origin, sched.ErrCancelled) {
		propagateCancel = origin
	}

	if g.ownerCancelRequested {
		// This group cancelled its own owner after a child failure.
		// Consume exactly one level; if none remain outstanding, the
		// cancellation stops here.
		if g.owner.Uncancel() == 0 {
			propagateCancel = nil
		}
	}

	aborted := false
	if origin != nil && !g.aborting {
		g.abortLocked()
		aborted = true
	}
	g.mu.Unlock()
	if aborted {
		g.obs.GroupAborted(ctx, origin)
	}

	// Drain the live set. The signal is created lazily, discarded after
	// each wake, and the loop tolerates being interrupted repeatedly
	// while children are still running. Once a cancellation interrupt
	// has been absorbed, further waits run uninterruptible: on runtimes
	// with level-triggered cancellation (a cancelled context) the same
	// interrupt would otherwise be redelivered forever.
	waitCtx := ctx
	for {
		g.mu.Lock()
		if len(g.tasks) == 0 {
			break
		}
		if g.onCompleted == nil {
			g.onCompleted = g.sched.NewSignal()
		}
		sig := g.onCompleted
		g.mu.Unlock()

		err := sig.Wait(waitCtx)

		aborted = false
		g.mu.Lock()
		g.onCompleted = nil
		if err != nil {
			switch {
			case errors.Is(err, sched.ErrShutdown):
				if g.severeErr == nil {
					g.severeErr = err
				}
				if !g.aborting {
					g.abortLocked()
					aborted = true
				}
			case !g.aborting:
				// The owner is being cancelled from outside while the
				// group drains: remember one cancellation to propagate
				// and stop the remaining children.
				propagateCancel = err
				g.abortLocked()
				aborted = true
			}
			if !errors.Is(err, sched.ErrShutdown) {
				waitCtx = context.WithoutCancel(ctx)
			}
		}
		g.mu.Unlock()
		if aborted {
			g.obs.GroupAborted(ctx, err)
		}
	}
	// The live set is provably empty here; the lock is still held.

	outcome := g.outcomeLocked(origin, propagateCancel)
	g.closed = true
	g.mu.Unlock()

	g.obs.GroupClosed(ctx, outcome, time.Since(start))
	return outcome
}

// outcomeLocked computes the final outcome. Call with the mutex held
// and the live set empty.
func (g *Group) outcomeLocked(origin, propagateCancel error) error {
	if origin != nil && g.severeErr == nil && IsSevere(origin) {
		g.severeErr = origin
	}

	// A severe failure wins outright; ordinary errors are discarded.
	if g.severeErr != nil {
		return g.severeErr
	}

	// Propagate the owner's cancellation, except if ordinary errors
	// were recorded: those have priority.
	if propagateCancel != nil && len(g.errs) == 0 {
		return propagateCancel
	}

	// A non-cancellation body failure folds into the ordinary list.
	if origin != nil && !errors.Is(origin, sched.ErrCancelled) {
		g.errs = append(g.errs, origin)
	}

	if len(g.errs) > 0 {
		errs := g.errs
		g.errs = nil
		return &GroupError{Errors: errs}
	}
	return nil
}

// abortLocked transitions the group to aborting and requests
// cancellation of every live child. Call with the mutex held.
func (g *Group) abortLocked() {
	g.aborting = true
	for t := range g.tasks {
		if !t.Done() {
			t.Cancel()
		}
	}
}

// onTaskDone is the completion callback for every child. It runs
// exactly once per child, removes it from the live set, wakes the
// waiter when the set drains, and records failures.
func (g *Group) onTaskDone(t sched.Task) {
	g.mu.Lock()
	ctx := g.ctx
	delete(g.tasks, t)
	if g.onCompleted != nil && len(g.tasks) == 0 {
		g.onCompleted.Set()
	}

	if t.Cancelled() {
		g.mu.Unlock()
		g.obs.TaskDone(ctx, t.Name(), sched.ErrCancelled)
		return
	}

	err := t.Err()
	if err == nil {
		g.mu.Unlock()
		g.obs.TaskDone(ctx, t.Name(), nil)
		return
	}

	g.errs = append(g.errs, err)
	if g.severeErr == nil && IsSevere(err) {
		g.severeErr = err
	}

	if g.owner.Done() {
		// The failure has no recipient: the owner already finished.
		g.mu.Unlock()
		g.obs.TaskDone(ctx, t.Name(), err)
		g.obs.OrphanedFailure(ctx, t.Name(), err)
		return
	}

	var owner sched.Task
	aborted := false
	if !g.aborting && !g.ownerCancelRequested {
		// First failure: stop the siblings and interrupt the owner's
		// body, remembering that this group initiated the cancellation
		// so Close can consume it again.
		g.abortLocked()
		g.ownerCancelRequested = true
		owner = g.owner
		aborted = true
	}
	g.mu.Unlock()

	g.obs.TaskDone(ctx, t.Name(), err)
	if aborted {
		g.obs.GroupAborted(ctx, err)
		owner.Cancel()
	}
}
