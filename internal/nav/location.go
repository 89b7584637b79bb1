// ABOUTME: The mutable location fragment observed by the router
// ABOUTME: Stands in for the browser hash; watchers are told about every change

package nav

import (
	"strings"
	"sync"
)

// Source is the external location indicator: it exposes a fragment, accepts
// a new one, and reports changes to it.
type Source interface {
	Fragment() string
	Set(fragment string)
	Watch(fn func(fragment string)) (cancel func())
}

// Location holds the current fragment string, for example "#users".
type Location struct {
	mu       sync.Mutex
	fragment string
	watchers map[int]func(string)
	nextID   int
}

// NewLocation creates a location with an initial fragment.
func NewLocation(initial string) *Location {
	return &Location{fragment: initial, watchers: make(map[int]func(string))}
}

// Fragment returns the current fragment.
func (l *Location) Fragment() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fragment
}

// Set changes the fragment and notifies watchers when it differs.
// Watchers run on the caller's goroutine after the lock is released.
func (l *Location) Set(fragment string) {
	l.mu.Lock()
	if fragment == l.fragment {
		l.mu.Unlock()
		return
	}
	l.fragment = fragment
	fns := make([]func(string), 0, len(l.watchers))
	for id := 0; id < l.nextID; id++ {
		if fn, ok := l.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(fragment)
	}
}

// Watch registers fn for fragment changes.
func (l *Location) Watch(fn func(fragment string)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.watchers[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.watchers, id)
		l.mu.Unlock()
	}
}

// ViewOf derives the view identifier from a fragment: the leading "#" (and an
// optional "/") is stripped. An empty result yields def.
func ViewOf(fragment, def string) string {
	v := strings.TrimSpace(fragment)
	v = strings.TrimPrefix(v, "#")
	v = strings.TrimPrefix(v, "/")
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// Fragment builds the fragment for a view.
func Fragment(view string) string {
	if view == "" {
		return ""
	}
	return "#" + view
}
