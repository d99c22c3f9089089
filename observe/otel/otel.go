package otel

import (
	"context"
	"time"
)

// Nop is a no-op implementation of the taskgroup.Observer interface.
// It serves as a placeholder for an OpenTelemetry-backed observer
// without adding dependencies.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) GroupOpened(context.Context)                       {}
func (*Nop) GroupAborted(context.Context, error)               {}
func (*Nop) GroupClosed(context.Context, error, time.Duration) {}
func (*Nop) TaskSpawned(context.Context, string)               {}
func (*Nop) TaskDone(context.Context, string, error)           {}
func (*Nop) OrphanedFailure(context.Context, string, error)    {}
