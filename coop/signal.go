package coop

import (
	"context"
	"errors"
)

// Signal is a one-shot completion signal for loop tasks. Create one via
// [Loop.NewSignal].
type Signal struct {
	loop    *Loop
	set     bool
	waiters []*Task
}

// Set fires the signal, making every waiter runnable. Idempotent.
func (s *Signal) Set() {
	if s.set {
		return
	}
	s.set = true
	ws := s.waiters
	s.waiters = nil
	for _, t := range ws {
		s.loop.makeReady(t)
	}
}

// Wait suspends the calling task until the signal fires. If the
// suspension is interrupted, Wait returns the interrupt
// ([sched.ErrCancelled] or [sched.ErrShutdown]) and the task is no
// longer a waiter. A signal that already fired returns immediately.
func (s *Signal) Wait(ctx context.Context) error {
	t := taskFrom(ctx)
	if t == nil || t.loop != s.loop || s.loop.current != t {
		return errors.New("coop: Wait called outside the running task")
	}
	if s.set {
		return nil
	}
	s.waiters = append(s.waiters, t)
	if err := t.park(); err != nil {
		s.remove(t)
		return err
	}
	return nil
}

func (s *Signal) remove(t *Task) {
	for i, w := range s.waiters {
		if w == t {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}
