package coop

import (
	"context"
	"errors"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

// ErrDeadlock is returned by [Loop.Main] when no task is runnable but
// the root task has not finished: every live task is parked on a signal
// that nothing can fire.
var ErrDeadlock = errors.New("coop: all tasks are parked")

type taskKey struct{}

// Loop is a single-threaded cooperative scheduler with a FIFO ready
// queue. It implements [sched.Scheduler].
//
// A Loop and its tasks form one logical thread of control; Loop methods
// must not be called concurrently from goroutines outside the loop.
type Loop struct {
	ready    []*Task
	live     map[*Task]struct{}
	current  *Task
	shutdown bool

	// yielded is the baton: a task sends on it when suspending or
	// finishing, returning control to the loop.
	yielded chan struct{}
}

var _ sched.Scheduler = (*Loop)(nil)

// New creates an empty loop.
func New() *Loop {
	return &Loop{
		live:    make(map[*Task]struct{}),
		yielded: make(chan struct{}),
	}
}

// Spawn queues fn as a new task. The task does not run until the loop
// schedules it; Spawn never executes user code.
func (l *Loop) Spawn(ctx context.Context, fn sched.TaskFunc) sched.Task {
	return l.spawn(ctx, fn)
}

func (l *Loop) spawn(ctx context.Context, fn sched.TaskFunc) *Task {
	t := &Task{
		loop:   l,
		fn:     fn,
		resume: make(chan error),
		state:  stateReady,
	}
	t.ctx = context.WithValue(ctx, taskKey{}, t)
	l.live[t] = struct{}{}
	l.ready = append(l.ready, t)
	return t
}

// Current returns the task that owns ctx, or nil.
func (l *Loop) Current(ctx context.Context) sched.Task {
	if t := taskFrom(ctx); t != nil && t.loop == l {
		return t
	}
	return nil
}

// NewSignal creates a one-shot signal bound to this loop.
func (l *Loop) NewSignal() sched.Signal {
	return &Signal{loop: l}
}

// Shutdown puts the loop into teardown: every parked task is made
// runnable and every subsequent suspension point delivers
// [sched.ErrShutdown]. Tasks that never started will not run at all.
func (l *Loop) Shutdown() {
	l.shutdown = true
	for t := range l.live {
		if t.state == stateParked {
			l.makeReady(t)
		}
	}
}

// Main spawns fn as the root task and runs the loop until it finishes,
// returning its terminal error. If the loop wedges with the root
// unfinished, Main tears the remaining tasks down and returns
// [ErrDeadlock]. Any tasks still live when the root finishes are
// likewise torn down before Main returns.
func (l *Loop) Main(ctx context.Context, fn sched.TaskFunc) error {
	root := l.spawn(ctx, fn)

	deadlock := false
	for root.state != stateDone {
		if len(l.ready) == 0 {
			deadlock = true
			break
		}
		l.step()
	}

	l.drain()

	if deadlock {
		return ErrDeadlock
	}
	return root.Err()
}

// step runs the next ready task until it suspends or finishes.
func (l *Loop) step() {
	t := l.ready[0]
	l.ready = l.ready[1:]
	if t.state != stateReady {
		return
	}

	if !t.started && l.shutdown {
		// Never ran; terminate without executing the body. finish runs
		// on the loop goroutine, which trivially holds the baton.
		t.finish(sched.ErrShutdown)
		return
	}

	t.state = stateRunning
	l.current = t
	if !t.started {
		t.started = true
		go t.run()
	} else {
		t.resume <- t.takeInterrupt()
	}
	<-l.yielded
	l.current = nil
}

// drain tears down every remaining task via Shutdown and runs the loop
// until the live set empties.
func (l *Loop) drain() {
	for len(l.live) > 0 {
		l.Shutdown()
		if len(l.ready) == 0 {
			return
		}
		for len(l.ready) > 0 {
			l.step()
		}
	}
}

func (l *Loop) makeReady(t *Task) {
	if t.state != stateParked {
		return
	}
	t.state = stateReady
	l.ready = append(l.ready, t)
}

func taskFrom(ctx context.Context) *Task {
	t, _ := ctx.Value(taskKey{}).(*Task)
	return t
}

// Yield reschedules the calling task behind the ready queue, letting
// other runnable tasks execute. It is a suspension point: pending
// cancellation or shutdown surfaces as the returned error.
func Yield(ctx context.Context) error {
	t := taskFrom(ctx)
	if t == nil || t.loop.current != t {
		return errors.New("coop: Yield called outside the running task")
	}
	t.state = stateReady
	t.loop.ready = append(t.loop.ready, t)
	t.loop.yielded <- struct{}{}
	return <-t.resume
}
