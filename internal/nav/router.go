// ABOUTME: Location router that derives the active view and publishes it to subscribers
// ABOUTME: Dispatch is serial; navigation requested from inside a subscriber is queued

package nav

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type subscriber struct {
	seq int
	fn  func(view string)
}

// Router publishes the active view derived from a Source.
type Router struct {
	src    Source
	logger *slog.Logger

	mu          sync.Mutex
	active      string
	home        string
	subscribers map[string]subscriber
	nextSeq     int
	pending     int
	dispatching bool
	closed      bool
	stopWatch   func()
}

// NewRouter creates a router over src. home is the view used while the
// fragment is empty. Pass nil logger for default.
func NewRouter(src Source, home string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		src:         src,
		home:        home,
		active:      ViewOf(src.Fragment(), home),
		subscribers: make(map[string]subscriber),
		logger:      logger.With("component", "router"),
	}
	r.stopWatch = src.Watch(func(string) { r.schedule() })
	return r
}

// Active returns the current view.
func (r *Router) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Home returns the default view.
func (r *Router) Home() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.home
}

// SetHome changes the default view and recomputes the active view.
func (r *Router) SetHome(home string) {
	r.mu.Lock()
	r.home = home
	r.mu.Unlock()
	r.schedule()
}

// Navigate points the location at view. Subscribers see the change once the
// router processes it, which is immediately unless a dispatch is in progress.
func (r *Router) Navigate(view string) {
	r.logger.Debug("navigate", "view", view)
	r.src.Set(Fragment(view))
}

// Subscribe registers fn for active-view changes and returns its id. The
// subscription is removed when ctx is cancelled or Unsubscribe is called.
func (r *Router) Subscribe(ctx context.Context, fn func(view string)) string {
	id := uuid.New().String()

	r.mu.Lock()
	r.subscribers[id] = subscriber{seq: r.nextSeq, fn: fn}
	r.nextSeq++
	r.mu.Unlock()

	r.logger.Debug("subscriber added", "sub_id", id)

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			r.Unsubscribe(id)
		}()
	}
	return id
}

// Unsubscribe removes a subscription.
func (r *Router) Unsubscribe(id string) {
	r.mu.Lock()
	_, ok := r.subscribers[id]
	delete(r.subscribers, id)
	r.mu.Unlock()
	if ok {
		r.logger.Debug("subscriber removed", "sub_id", id)
	}
}

// Reset clears the fragment so the active view falls back to home.
func (r *Router) Reset() {
	r.src.Set("")
}

// Close stops watching the source and drops all subscribers.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.subscribers = make(map[string]subscriber)
	stop := r.stopWatch
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// schedule records that the view must be recomputed. The first caller becomes
// the dispatcher and drains requests until none remain, so recomputations
// never overlap and a subscriber calling Navigate is served after it returns.
func (r *Router) schedule() {
	r.mu.Lock()
	r.pending++
	if r.dispatching || r.closed {
		r.mu.Unlock()
		return
	}
	r.dispatching = true
	r.mu.Unlock()

	for {
		r.mu.Lock()
		if r.pending == 0 || r.closed {
			r.dispatching = false
			r.pending = 0
			r.mu.Unlock()
			return
		}
		r.pending--
		view := ViewOf(r.src.Fragment(), r.home)
		if view == r.active {
			r.mu.Unlock()
			continue
		}
		prev := r.active
		r.active = view
		subs := make([]subscriber, 0, len(r.subscribers))
		for _, s := range r.subscribers {
			subs = append(subs, s)
		}
		r.mu.Unlock()

		sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })
		r.logger.Debug("active view changed", "from", prev, "to", view)
		for _, s := range subs {
			s.fn(view)
		}
	}
}
