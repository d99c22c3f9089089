package taskgroup

import "context"

// Options configure a [Group].
type Options struct {
	Observer Observer
}

// Option mutates [Options].
type Option func(*Options)

// WithObserver registers an [Observer] for the group's lifecycle events.
func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

// SpawnOptions configure a single [Group.Go] call.
type SpawnOptions struct {
	Name    string
	Context context.Context
}

// SpawnOption mutates [SpawnOptions].
type SpawnOption func(*SpawnOptions)

// WithName sets the child task's display name.
func WithName(name string) SpawnOption {
	return func(o *SpawnOptions) { o.Name = name }
}

// WithContext overrides the execution context the child is spawned
// with. By default children derive from the context the group was
// opened with.
func WithContext(ctx context.Context) SpawnOption {
	return func(o *SpawnOptions) { o.Context = ctx }
}
