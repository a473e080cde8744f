package resource

import (
	"context"
	"sync"
)

// Logger is the logging interface used by resources.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

type options struct {
	logger   Logger
	onChange func()
}

// Option configures a Resource.
type Option func(*options)

// WithLogger sets the logger used to report failed fetches.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNotify registers fn to be called after every state change.
// fn is called without any lock held and may call Snapshot.
func WithNotify(fn func()) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Snapshot is a point-in-time copy of a resource's state.
type Snapshot[T any] struct {
	// Data is the last successfully fetched value.
	Data T

	// HasData reports whether any fetch has succeeded yet.
	HasData bool

	// Loading is true while the latest fetch is in flight.
	Loading bool

	// Err is the error of the latest applied fetch, nil after a success.
	Err error
}

// FetchFunc loads the current value of a collection.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Resource is a fetched collection with loading and error state.
// It is safe for concurrent use.
type Resource[T any] struct {
	name  string
	fetch FetchFunc[T]
	opts  options

	mu        sync.Mutex
	snap      Snapshot[T]
	activated bool
	issued    uint64 // sequence number of the newest fetch started
	applied   uint64 // sequence number of the newest fetch applied
}

// New creates an inactive resource. name identifies it in logs.
func New[T any](name string, fetch FetchFunc[T], opts ...Option) *Resource[T] {
	return &Resource[T]{
		name:  name,
		fetch: fetch,
		opts:  buildOptions(opts),
	}
}

// Name returns the resource name.
func (r *Resource[T]) Name() string {
	return r.name
}

// Snapshot returns the current state.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Activate starts the first fetch. Later calls do nothing and return nil.
func (r *Resource[T]) Activate(ctx context.Context) error {
	r.mu.Lock()
	if r.activated {
		r.mu.Unlock()
		return nil
	}
	r.activated = true
	r.mu.Unlock()

	return r.Refresh(ctx)
}

// Refresh fetches the collection and blocks until the result is applied
// or discarded. On failure the previous data is kept and the error is
// both recorded and returned.
func (r *Resource[T]) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.activated = true
	r.issued++
	seq := r.issued
	r.snap.Loading = true
	r.mu.Unlock()
	r.notify()

	data, err := r.fetch(ctx)

	r.mu.Lock()
	if seq < r.applied {
		// A newer fetch already landed.
		r.mu.Unlock()
		return err
	}
	r.applied = seq
	r.snap.Loading = seq != r.issued
	if err != nil {
		r.snap.Err = err
	} else {
		r.snap.Data = data
		r.snap.HasData = true
		r.snap.Err = nil
	}
	r.mu.Unlock()

	if err != nil {
		r.opts.logger.Warn("resource fetch failed", "resource", r.name, "error", err)
	}
	r.notify()
	return err
}

// Mutate runs fn and, when it succeeds, refreshes the resource. A failed
// mutation is returned as is and leaves the resource untouched. A failed
// refresh after a successful mutation is only recorded in the snapshot.
func (r *Resource[T]) Mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	//nolint:errcheck // recorded in the snapshot and logged
	r.Refresh(ctx)
	return nil
}

func (r *Resource[T]) notify() {
	if r.opts.onChange != nil {
		r.opts.onChange()
	}
}
