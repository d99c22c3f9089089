package taskgroup_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NetPo4ki/go-taskgroup/coop"
	"github.com/NetPo4ki/go-taskgroup/sched"
	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

func noop(ctx context.Context) error { return nil }

func TestEagerChildSkipsLiveSet(t *testing.T) {
	t.Parallel()
	boom := errors.New("eager failure")
	fs := &fakeSched{current: &fakeTask{}, eager: boom}

	g := taskgroup.New(fs)
	if err := g.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := g.Go(noop); err != nil {
		t.Fatalf("Go: %v", err)
	}
	// The child finished before registration returned: it never joined
	// the live set, and its failure is already recorded.
	if g.Active() != 0 {
		t.Fatalf("eager child entered the live set: %d", g.Active())
	}
	if fs.current.cancels != 1 {
		t.Fatalf("eager failure should cancel the owner once, got %d", fs.current.cancels)
	}

	err := g.Close(sched.ErrCancelled)
	var ge *taskgroup.GroupError
	if !errors.As(err, &ge) || len(ge.Errors) != 1 || !errors.Is(ge.Errors[0], boom) {
		t.Fatalf("expected composite [eager failure], got %v", err)
	}
}

func TestEagerSuccessSkipsLiveSet(t *testing.T) {
	t.Parallel()
	fs := &fakeSched{current: &fakeTask{}, eagerOK: true}

	g := taskgroup.New(fs)
	if err := g.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := g.Go(noop); err != nil {
		t.Fatalf("Go: %v", err)
	}
	if g.Active() != 0 {
		t.Fatalf("eager child entered the live set: %d", g.Active())
	}
	if err := g.Close(nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOwnerUncancelConsumesExactlyOne(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	owner := &fakeTask{}
	fs := &fakeSched{current: owner}

	g := taskgroup.New(fs)
	if err := g.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	child, err := g.Go(noop)
	if err != nil {
		t.Fatalf("Go: %v", err)
	}

	// The child fails: the group aborts and requests one owner cancel.
	child.(*fakeTask).finish(boom)
	if owner.cancels != 1 {
		t.Fatalf("expected one owner cancel from the group, got %d", owner.cancels)
	}

	// A second, external cancellation arrives before the owner closes.
	owner.Cancel()
	if owner.cancels != 2 {
		t.Fatalf("expected two outstanding cancels, got %d", owner.cancels)
	}

	out := g.Close(sched.ErrCancelled)

	// Exactly one level was consumed: the group's own request.
	if owner.cancels != 1 {
		t.Fatalf("expected exactly one level consumed, outstanding now %d", owner.cancels)
	}
	// The ordinary failure still has priority over propagation.
	var ge *taskgroup.GroupError
	if !errors.As(out, &ge) {
		t.Fatalf("expected composite outcome, got %v", out)
	}
}

func TestOwnerUncancelStopsPropagation(t *testing.T) {
	t.Parallel()
	owner := &fakeTask{}
	fs := &fakeSched{current: owner}

	g := taskgroup.New(fs)
	if err := g.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	child, err := g.Go(noop)
	if err != nil {
		t.Fatalf("Go: %v", err)
	}

	// The child failure aborts the group and cancels the owner, whose
	// body then observes the cancellation and closes with it.
	child.(*fakeTask).finish(errors.New("hidden"))
	out := g.Close(sched.ErrCancelled)

	// The group's request was the only outstanding level, so the
	// cancellation is fully consumed and must not propagate; the
	// child's error is the outcome.
	if errors.Is(out, sched.ErrCancelled) {
		t.Fatalf("cancellation should have been consumed, got %v", out)
	}
	if owner.cancels != 0 {
		t.Fatalf("expected no outstanding cancels, got %d", owner.cancels)
	}
}

type recordObserver struct {
	mu       sync.Mutex
	opened   int
	aborted  int
	closed   int
	spawned  int
	done     int
	orphaned []error
}

func (o *recordObserver) GroupOpened(context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened++
}

func (o *recordObserver) GroupAborted(context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aborted++
}

func (o *recordObserver) GroupClosed(context.Context, error, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
}

func (o *recordObserver) TaskSpawned(context.Context, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spawned++
}

func (o *recordObserver) TaskDone(context.Context, string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done++
}

func (o *recordObserver) OrphanedFailure(_ context.Context, _ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orphaned = append(o.orphaned, err)
}

func TestOrphanedFailureSurfaced(t *testing.T) {
	t.Parallel()
	boom := errors.New("late boom")
	owner := &fakeTask{}
	obs := &recordObserver{}
	fs := &fakeSched{current: owner}

	g := taskgroup.New(fs, taskgroup.WithObserver(obs))
	if err := g.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	child, err := g.Go(noop)
	if err != nil {
		t.Fatalf("Go: %v", err)
	}

	// The owner finishes before the child fails: there is no recipient
	// for the error, so it must surface through the observer and the
	// owner must not be cancelled.
	owner.finish(nil)
	child.(*fakeTask).finish(boom)

	if owner.cancels != 0 {
		t.Fatalf("orphaned failure must not cancel a finished owner, got %d", owner.cancels)
	}
	if len(obs.orphaned) != 1 || !errors.Is(obs.orphaned[0], boom) {
		t.Fatalf("expected orphaned failure [late boom], got %v", obs.orphaned)
	}
}

func TestObserverLifecycleEvents(t *testing.T) {
	t.Parallel()
	obs := &recordObserver{}
	boom := errors.New("boom")

	loop := coop.New()
	_ = loop.Main(context.Background(), func(ctx context.Context) error {
		return taskgroup.Run(ctx, loop, func(_ context.Context, tg *taskgroup.Group) error {
			tg.Go(func(ctx context.Context) error { return nil })
			tg.Go(func(ctx context.Context) error {
				if err := coop.Yield(ctx); err != nil {
					return err
				}
				return boom
			})
			return nil
		}, taskgroup.WithObserver(obs))
	})

	if obs.opened != 1 || obs.closed != 1 {
		t.Fatalf("expected one open and one close, got %d/%d", obs.opened, obs.closed)
	}
	if obs.aborted != 1 {
		t.Fatalf("expected exactly one abort, got %d", obs.aborted)
	}
	if obs.spawned != 2 || obs.done != 2 {
		t.Fatalf("unexpected task counts: spawned=%d done=%d", obs.spawned, obs.done)
	}
}
