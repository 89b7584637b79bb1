// ABOUTME: Coalescing window that lets the first occurrence of a signal through
// ABOUTME: Used to collapse bursts of session-expiry rejections into one logout

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	at   time.Time
	elem *list.Element
}

// Window remembers keys for a fixed duration. Entries expire lazily on access,
// so a Window owns no goroutine and needs no Close.
type Window struct {
	mu    sync.Mutex
	seen  map[string]*entry
	order *list.List // oldest at front
	ttl   time.Duration
	max   int
	now   func() time.Time
}

// New creates a window of the given duration holding at most max keys.
func New(ttl time.Duration, max int) *Window {
	if max <= 0 {
		max = 1
	}
	return &Window{
		seen:  make(map[string]*entry),
		order: list.New(),
		ttl:   ttl,
		max:   max,
		now:   time.Now,
	}
}

// First reports whether key is new within the window and marks it.
// Concurrent callers with the same key get true exactly once.
func (w *Window) First(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.expireLocked(now)

	if _, ok := w.seen[key]; ok {
		return false
	}
	if len(w.seen) >= w.max {
		w.evictOldestLocked()
	}
	w.seen[key] = &entry{at: now, elem: w.order.PushBack(key)}
	return true
}

// Seen reports whether key is inside the window without marking it.
func (w *Window) Seen(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked(w.now())
	_, ok := w.seen[key]
	return ok
}

// Forget removes key so its next occurrence passes again.
func (w *Window) Forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.seen[key]; ok {
		w.order.Remove(e.elem)
		delete(w.seen, key)
	}
}

// Len returns the number of live keys.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked(w.now())
	return len(w.seen)
}

// expireLocked drops entries older than ttl. Insertion order is time order,
// so it stops at the first live entry.
func (w *Window) expireLocked(now time.Time) {
	for front := w.order.Front(); front != nil; front = w.order.Front() {
		key, _ := front.Value.(string)
		if now.Sub(w.seen[key].at) < w.ttl {
			return
		}
		w.order.Remove(front)
		delete(w.seen, key)
	}
}

func (w *Window) evictOldestLocked() {
	front := w.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	w.order.Remove(front)
	delete(w.seen, key)
}
