// Package errgroup provides an adapter that mimics
// golang.org/x/sync/errgroup semantics on top of a parallel-backed task
// group. It enables incremental migration of errgroup call sites
// without changing their shape.
package errgroup

import (
	"context"
	"errors"
	"sync"

	"github.com/NetPo4ki/go-taskgroup/parallel"
	"github.com/NetPo4ki/go-taskgroup/sched"
	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

// Group is an errgroup-like wrapper over a [taskgroup.Group] driven by
// an owner task on a [parallel.Scheduler]. The first function to return
// a non-nil error cancels the group context and the remaining
// functions; Wait returns that first error.
type Group struct {
	cancel     context.CancelCauseFunc
	cancelOnce sync.Once
	submit     chan sched.TaskFunc
	result     chan error
}

// WithContext creates a Group bound to ctx. The returned context is
// cancelled when any function passed to Go returns a non-nil error, or
// when Wait returns.
func WithContext(ctx context.Context) (*Group, context.Context) {
	gctx, cancel := context.WithCancelCause(ctx)
	g := &Group{
		cancel: cancel,
		submit: make(chan sched.TaskFunc),
		result: make(chan error, 1),
	}

	sch := parallel.New()
	go func() {
		g.result <- sch.Main(gctx, func(tctx context.Context) error {
			return taskgroup.Run(tctx, sch, func(_ context.Context, tg *taskgroup.Group) error {
				for fn := range g.submit {
					if _, err := tg.Go(fn); err != nil {
						// Group is shutting down after a failure; keep
						// draining so senders never block.
						for range g.submit {
						}
						return nil
					}
				}
				return nil
			})
		})
	}()
	return g, gctx
}

// Go starts f. It must not be called after Wait.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	g.submit <- func(context.Context) error {
		if err := f(); err != nil {
			g.cancelOnce.Do(func() { g.cancel(err) })
			return err
		}
		return nil
	}
}

// Wait blocks until all functions have returned, cancels the group
// context, and returns the first non-nil error.
func (g *Group) Wait() error {
	close(g.submit)
	err := <-g.result
	g.cancelOnce.Do(func() { g.cancel(nil) })
	return firstError(err)
}

// firstError reduces a group outcome to errgroup's single-error shape:
// the first recorded failure, in completion order.
func firstError(err error) error {
	if err == nil {
		return nil
	}
	var ge *taskgroup.GroupError
	if errors.As(err, &ge) && len(ge.Errors) > 0 {
		return ge.Errors[0]
	}
	return err
}
