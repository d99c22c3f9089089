// Package parallel is a goroutine-backed runtime implementing the sched
// contract. Each task runs on its own goroutine; completion callbacks
// run on the finishing task's goroutine, which is why the group guards
// its state with a mutex when driven by this scheduler.
//
// Cancellation is cooperative here too: Cancel cancels the task's
// context with cause [sched.ErrCancelled], and the task observes it at
// its next blocking point (signal waits, channel operations selecting
// on ctx.Done). Contexts cannot be un-cancelled, so each task keeps its
// own outstanding-cancellation counter to keep Uncancel bookkeeping
// exact.
package parallel

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

// Scheduler spawns goroutine-backed tasks. Create one with [New].
type Scheduler struct {
	sem *semaphore.Weighted
}

var _ sched.Scheduler = (*Scheduler)(nil)

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithLimit bounds the number of task bodies executing concurrently.
// Tasks beyond the limit wait for a slot, respecting cancellation while
// waiting. n must be positive.
func WithLimit(n int64) Option {
	if n <= 0 {
		panic("parallel: limit must be positive")
	}
	return func(s *Scheduler) { s.sem = semaphore.NewWeighted(n) }
}

// New creates a scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type taskKey struct{}

// Spawn starts fn on a new goroutine. The returned handle is safe for
// concurrent use.
func (s *Scheduler) Spawn(ctx context.Context, fn sched.TaskFunc) sched.Task {
	t := &task{}
	tctx, cancel := context.WithCancelCause(context.WithValue(ctx, taskKey{}, t))
	t.cancel = cancel

	go func() {
		defer cancel(nil)
		if s.sem != nil {
			if err := s.sem.Acquire(tctx, 1); err != nil {
				// Cancelled while waiting for a slot; the body never ran.
				t.finish(cancelCause(tctx))
				return
			}
			defer s.sem.Release(1)
		}
		t.finish(invoke(tctx, fn))
	}()
	return t
}

// Current returns the task that owns ctx, or nil.
func (s *Scheduler) Current(ctx context.Context) sched.Task {
	if t, ok := ctx.Value(taskKey{}).(*task); ok {
		return t
	}
	return nil
}

// NewSignal creates a channel-backed one-shot signal.
func (s *Scheduler) NewSignal() sched.Signal {
	return &signal{ch: make(chan struct{})}
}

// Main spawns fn as a root task and blocks until it finishes, returning
// its terminal error. It is the goroutine-world analogue of running a
// cooperative loop to completion.
func (s *Scheduler) Main(ctx context.Context, fn sched.TaskFunc) error {
	t := s.Spawn(ctx, fn)
	done := make(chan struct{})
	t.OnDone(func() { close(done) })
	<-done
	return t.Err()
}

func invoke(ctx context.Context, fn sched.TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = sched.NewPanicError(r)
		}
	}()
	return fn(ctx)
}

// cancelCause maps a cancelled context to the cooperative cancellation
// sentinel, preserving richer causes such as deadlines.
func cancelCause(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) {
		return sched.ErrCancelled
	}
	return cause
}

type task struct {
	cancel context.CancelCauseFunc

	mu        sync.Mutex
	name      string
	done      bool
	cancelled bool
	err       error
	cancels   int
	callbacks []func()
}

var _ sched.Task = (*task)(nil)

func (t *task) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

func (t *task) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}

func (t *task) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done && t.cancelled
}

func (t *task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		return nil
	}
	if t.cancelled {
		return sched.ErrCancelled
	}
	return t.err
}

func (t *task) Cancel() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.cancels++
	t.mu.Unlock()
	t.cancel(sched.ErrCancelled)
}

func (t *task) Uncancel() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancels > 0 {
		t.cancels--
	}
	return t.cancels
}

func (t *task) OnDone(fn func()) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		fn()
		return
	}
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}

func (t *task) finish(err error) {
	t.mu.Lock()
	t.done = true
	t.err = err
	t.cancelled = err != nil && errors.Is(err, sched.ErrCancelled)
	cbs := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}

type signal struct {
	once sync.Once
	ch   chan struct{}
}

func (s *signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

func (s *signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return cancelCause(ctx)
	}
}
