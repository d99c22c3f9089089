package taskgroup

import (
	"context"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

// Body is the owner-side function of a [Run] call. It spawns children
// into g and may itself fail or be cancelled; its return value becomes
// the origin outcome the group closes with.
type Body func(ctx context.Context, g *Group) error

// Run opens a group on the task identified by ctx, invokes body, and
// closes the group, returning the single aggregated outcome.
//
// A panic in body is captured as a [*sched.PanicError] origin, which is
// severe: the group still drains its children, then reports the panic
// alone.
func Run(ctx context.Context, s sched.Scheduler, body Body, opts ...Option) error {
	g := New(s, opts...)
	if err := g.Open(ctx); err != nil {
		return err
	}
	return g.Close(runBody(ctx, g, body))
}

func runBody(ctx context.Context, g *Group, body Body) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = sched.NewPanicError(r)
		}
	}()
	return body(ctx, g)
}
