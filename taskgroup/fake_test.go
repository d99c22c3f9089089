package taskgroup_test

import (
	"context"
	"errors"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

// fakeSched is a hand-driven scheduler for exercising group transitions
// that need surgical control: eager completion, orphaned failures, and
// owner-cancellation bookkeeping. Tests finish tasks explicitly instead
// of running their bodies.
type fakeSched struct {
	current *fakeTask
	eager   error // when set, spawned tasks finish immediately with it
	eagerOK bool  // when true, spawned tasks finish immediately with nil
	spawned []*fakeTask
}

type fakeKey struct{}

func (s *fakeSched) Spawn(ctx context.Context, fn sched.TaskFunc) sched.Task {
	t := &fakeTask{}
	s.spawned = append(s.spawned, t)
	if s.eager != nil {
		t.finish(s.eager)
	} else if s.eagerOK {
		t.finish(nil)
	}
	return t
}

func (s *fakeSched) Current(ctx context.Context) sched.Task {
	if s.current == nil {
		return nil
	}
	return s.current
}

func (s *fakeSched) NewSignal() sched.Signal { return &fakeSignal{} }

type fakeTask struct {
	name      string
	done      bool
	cancelled bool
	err       error
	cancels   int
	cbs       []func()
}

func (t *fakeTask) Name() string        { return t.name }
func (t *fakeTask) SetName(name string) { t.name = name }
func (t *fakeTask) Done() bool          { return t.done }
func (t *fakeTask) Cancelled() bool     { return t.done && t.cancelled }

func (t *fakeTask) Err() error {
	if !t.done {
		return nil
	}
	return t.err
}

func (t *fakeTask) Cancel() {
	if t.done {
		return
	}
	t.cancels++
}

func (t *fakeTask) Uncancel() int {
	if t.cancels > 0 {
		t.cancels--
	}
	return t.cancels
}

func (t *fakeTask) OnDone(fn func()) {
	if t.done {
		fn()
		return
	}
	t.cbs = append(t.cbs, fn)
}

// finish drives the task to a terminal state, running callbacks like a
// real runtime would.
func (t *fakeTask) finish(err error) {
	t.done = true
	t.err = err
	t.cancelled = err != nil && errors.Is(err, sched.ErrCancelled)
	cbs := t.cbs
	t.cbs = nil
	for _, fn := range cbs {
		fn()
	}
}

type fakeSignal struct {
	set bool
}

func (s *fakeSignal) Set() { s.set = true }

func (s *fakeSignal) Wait(ctx context.Context) error { return nil }
