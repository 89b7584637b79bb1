// ABOUTME: Generic fetched value with supersede-on-load and stale response discarding
// ABOUTME: Each Load bumps a sequence number; only the latest fetch may apply its result

package panel

import (
	"context"
	"log/slog"
	"sync"
)

// Fetch retrieves and normalizes a value.
type Fetch[V any] func(ctx context.Context) (V, error)

// State is a snapshot of a Resource.
type State[V any] struct {
	Value   V
	Loading bool
	Loaded  bool
	Err     string
	Key     string
}

// Resource holds one fetched value for a panel.
type Resource[V any] struct {
	name     string
	zero     func() V
	describe func(error) string
	notify   func()
	logger   *slog.Logger

	mu      sync.Mutex
	value   V
	loaded  bool
	loading bool
	err     string
	key     string
	seq     uint64
	cancel  context.CancelFunc
	closed  bool
	running sync.WaitGroup
}

// NewResource creates an empty resource. zero builds the empty value used
// before the first load and after a failure; describe turns a fetch error
// into the message shown in the view; notify, if set, runs after every applied
// result without any lock held.
func NewResource[V any](name string, zero func() V, describe func(error) string, notify func(), logger *slog.Logger) *Resource[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resource[V]{
		name:     name,
		zero:     zero,
		describe: describe,
		notify:   notify,
		logger:   logger,
		value:    zero(),
	}
}

// Name returns the resource name used in logs.
func (r *Resource[V]) Name() string {
	return r.name
}

// Load starts fetch under key, superseding any fetch in flight. It returns
// immediately; the result is applied from a goroutine.
func (r *Resource[V]) Load(parent context.Context, key string, fetch Fetch[V]) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	seq := r.seq
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.loading = true
	r.err = ""
	r.key = key
	r.running.Add(1)
	r.mu.Unlock()

	r.logger.Debug("fetch issued", "resource", r.name, "seq", seq, "key", key)

	go func() {
		defer r.running.Done()
		defer cancel()
		v, err := fetch(ctx)
		r.apply(ctx, seq, v, err)
	}()
}

// Ensure loads unless a fetch for the same key is already in flight.
func (r *Resource[V]) Ensure(parent context.Context, key string, fetch Fetch[V]) {
	r.mu.Lock()
	inflight := r.loading && r.key == key
	r.mu.Unlock()
	if inflight {
		return
	}
	r.Load(parent, key, fetch)
}

func (r *Resource[V]) apply(ctx context.Context, seq uint64, v V, err error) {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return
	case seq != r.seq:
		r.mu.Unlock()
		r.logger.Debug("stale response discarded", "resource", r.name, "seq", seq)
		return
	case ctx.Err() != nil:
		// Superseded callers already bumped seq; this is an external cancel.
		r.loading = false
		r.cancel = nil
		r.mu.Unlock()
		return
	}

	r.loading = false
	r.cancel = nil
	if err != nil {
		r.value = r.zero()
		r.loaded = false
		r.err = r.describe(err)
	} else {
		r.value = v
		r.loaded = true
		r.err = ""
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("fetch failed", "resource", r.name, "seq", seq, "error", err)
	} else {
		r.logger.Debug("fetch applied", "resource", r.name, "seq", seq)
	}
	if r.notify != nil {
		r.notify()
	}
}

// Cancel stops any fetch in flight; its result will not be applied.
func (r *Resource[V]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.loading {
		r.seq++
		r.loading = false
	}
}

// Update patches the held value in place.
func (r *Resource[V]) Update(fn func(V) V) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.value = fn(r.value)
	r.mu.Unlock()
	if r.notify != nil {
		r.notify()
	}
}

// Reset drops the held value and error.
func (r *Resource[V]) Reset() {
	r.Cancel()
	r.mu.Lock()
	r.value = r.zero()
	r.loaded = false
	r.err = ""
	r.key = ""
	r.mu.Unlock()
}

// Snapshot returns the current state.
func (r *Resource[V]) Snapshot() State[V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State[V]{Value: r.value, Loading: r.loading, Loaded: r.loaded, Err: r.err, Key: r.key}
}

// Wait blocks until every fetch goroutine started so far has returned.
func (r *Resource[V]) Wait() {
	r.running.Wait()
}

// Close cancels any fetch and prevents further loads and updates from applying.
func (r *Resource[V]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.loading = false
}
