// Package prom exports task group lifecycle events as Prometheus
// metrics. It implements the taskgroup.Observer interface.
package prom

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NetPo4ki/go-taskgroup/sched"
)

// Observer maintains Prometheus collectors for group and task lifecycle
// events. Register it on a group via taskgroup.WithObserver.
type Observer struct {
	groupsOpened  prometheus.Counter
	groupsAborted prometheus.Counter
	groupsClosed  *prometheus.CounterVec
	closeWait     prometheus.Histogram

	tasksSpawned  prometheus.Counter
	tasksDone     *prometheus.CounterVec
	orphaned      prometheus.Counter
}

// New creates an Observer whose collectors are registered on reg. Pass
// prometheus.DefaultRegisterer to use the default registry.
func New(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		groupsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "taskgroup_groups_opened_total",
			Help: "Groups entered by an owner task.",
		}),
		groupsAborted: f.NewCounter(prometheus.CounterOpts{
			Name: "taskgroup_groups_aborted_total",
			Help: "Groups that cancelled all live children.",
		}),
		groupsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgroup_groups_closed_total",
			Help: "Groups closed, by outcome.",
		}, []string{"outcome"}),
		closeWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskgroup_close_wait_seconds",
			Help:    "Time spent draining the live child set on close.",
			Buckets: prometheus.DefBuckets,
		}),
		tasksSpawned: f.NewCounter(prometheus.CounterOpts{
			Name: "taskgroup_tasks_spawned_total",
			Help: "Children registered with a group.",
		}),
		tasksDone: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgroup_tasks_done_total",
			Help: "Children that reached a terminal state, by result.",
		}, []string{"result"}),
		orphaned: f.NewCounter(prometheus.CounterOpts{
			Name: "taskgroup_orphaned_failures_total",
			Help: "Child failures observed after the owner finished.",
		}),
	}
}

// GroupOpened records group entry.
func (o *Observer) GroupOpened(context.Context) {
	o.groupsOpened.Inc()
}

// GroupAborted records the abort-all-children transition.
func (o *Observer) GroupAborted(context.Context, error) {
	o.groupsAborted.Inc()
}

// GroupClosed records the final outcome and the drain time.
func (o *Observer) GroupClosed(_ context.Context, outcome error, wait time.Duration) {
	o.groupsClosed.WithLabelValues(outcomeLabel(outcome)).Inc()
	o.closeWait.Observe(wait.Seconds())
}

// TaskSpawned records a child registration.
func (o *Observer) TaskSpawned(context.Context, string) {
	o.tasksSpawned.Inc()
}

// TaskDone records a child's terminal state.
func (o *Observer) TaskDone(_ context.Context, _ string, err error) {
	o.tasksDone.WithLabelValues(resultLabel(err)).Inc()
}

// OrphanedFailure records a failure that had no recipient.
func (o *Observer) OrphanedFailure(context.Context, string, error) {
	o.orphaned.Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sched.ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sched.ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}
