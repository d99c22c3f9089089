package coop

import (
	"context"
	"errors"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

type taskState uint8

const (
	// stateReady: queued in the loop's ready queue.
	stateReady taskState = iota
	// stateRunning: currently holding the baton.
	stateRunning
	// stateParked: suspended, waiting to be made ready.
	stateParked
	// stateDone: terminal.
	stateDone
)

// Task is a cooperatively scheduled unit of work. All methods must be
// called from loop-driven code: either the loop goroutine itself or the
// task currently holding the baton.
type Task struct {
	loop *Loop
	name string
	fn   sched.TaskFunc
	ctx  context.Context

	state   taskState
	started bool

	// resume delivers the baton back to a suspended task, carrying the
	// pending interrupt, if any.
	resume chan error

	// cancels is the outstanding cancellation count; cancelPending
	// marks an undelivered interrupt.
	cancels       int
	cancelPending bool

	err       error
	cancelled bool
	callbacks []func()
}

var _ sched.Task = (*Task)(nil)

// Name returns the task's display name.
func (t *Task) Name() string { return t.name }

// SetName sets the task's display name.
func (t *Task) SetName(name string) { t.name = name }

// Done reports whether the task reached a terminal state.
func (t *Task) Done() bool { return t.state == stateDone }

// Cancelled reports whether the task finished by cancellation.
func (t *Task) Cancelled() bool { return t.state == stateDone && t.cancelled }

// Err returns the task's terminal error. It is nil until the task is
// done; for a cancelled task it is [sched.ErrCancelled].
func (t *Task) Err() error {
	if t.state != stateDone {
		return nil
	}
	if t.cancelled {
		return sched.ErrCancelled
	}
	return t.err
}

// Cancel requests cooperative cancellation. The request is delivered at
// the task's next suspension point; a parked task is made runnable so
// delivery is not deferred indefinitely. Each call increments the
// outstanding count.
func (t *Task) Cancel() {
	if t.state == stateDone {
		return
	}
	t.cancels++
	t.cancelPending = true
	if t.state == stateParked {
		t.loop.makeReady(t)
	}
}

// Uncancel consumes one outstanding cancellation request and returns
// the number still pending.
func (t *Task) Uncancel() int {
	if t.cancels > 0 {
		t.cancels--
	}
	return t.cancels
}

// OnDone registers fn to run when the task finishes. If the task is
// already done, fn runs immediately.
func (t *Task) OnDone(fn func()) {
	if t.state == stateDone {
		fn()
		return
	}
	t.callbacks = append(t.callbacks, fn)
}

// run executes the task body on its own goroutine, then hands the baton
// back to the loop for good.
func (t *Task) run() {
	t.finish(t.invoke())
	t.loop.yielded <- struct{}{}
}

func (t *Task) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = sched.NewPanicError(r)
		}
	}()
	// A cancellation or shutdown requested before the first run wins:
	// the body never executes.
	if pending := t.takeInterrupt(); pending != nil {
		return pending
	}
	return t.fn(t.ctx)
}

// finish moves the task to its terminal state and runs completion
// callbacks in registration order. It runs while the baton is held, so
// callbacks observe a quiescent loop.
func (t *Task) finish(err error) {
	t.state = stateDone
	t.err = err
	t.cancelled = err != nil && errors.Is(err, sched.ErrCancelled)
	delete(t.loop.live, t)

	cbs := t.callbacks
	t.callbacks = nil
	for _, fn := range cbs {
		fn()
	}
}

// park releases the baton and blocks until the loop resumes the task.
// The returned error is the interrupt delivered with the resume, if any.
func (t *Task) park() error {
	t.state = stateParked
	t.loop.yielded <- struct{}{}
	return <-t.resume
}

// takeInterrupt consumes the pending interrupt for this task, shutdown
// taking precedence over cancellation.
func (t *Task) takeInterrupt() error {
	if t.loop.shutdown {
		return sched.ErrShutdown
	}
	if t.cancelPending {
		t.cancelPending = false
		return sched.ErrCancelled
	}
	return nil
}
