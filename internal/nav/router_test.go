// ABOUTME: Tests for the location fragment and the serial view router
// ABOUTME: Covers defaults, change-only publishing, and navigation from inside a subscriber

package nav

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewOf(t *testing.T) {
	tests := []struct {
		fragment string
		want     string
	}{
		{"#users", "users"},
		{"users", "users"},
		{"#/logs", "logs"},
		{"#", "dashboard"},
		{"", "dashboard"},
		{"  #grades ", "grades"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ViewOf(tt.fragment, "dashboard"), tt.fragment)
	}
}

func TestLocationNotifiesOnlyOnChange(t *testing.T) {
	loc := NewLocation("#a")
	var got []string
	cancel := loc.Watch(func(f string) { got = append(got, f) })

	loc.Set("#a")
	loc.Set("#b")
	loc.Set("#b")
	cancel()
	loc.Set("#c")

	assert.Equal(t, []string{"#b"}, got)
	assert.Equal(t, "#c", loc.Fragment())
}

func TestRouterInitialAndHome(t *testing.T) {
	loc := NewLocation("")
	r := NewRouter(loc, "dashboard", nil)
	defer r.Close()
	assert.Equal(t, "dashboard", r.Active())

	var views []string
	r.Subscribe(context.Background(), func(v string) { views = append(views, v) })

	r.SetHome("resultcards")
	assert.Equal(t, "resultcards", r.Active())

	r.Navigate("users")
	assert.Equal(t, "users", r.Active())
	assert.Equal(t, "#users", loc.Fragment())

	// Home changes do not override an explicit fragment.
	r.SetHome("login")
	assert.Equal(t, "users", r.Active())

	r.Reset()
	assert.Equal(t, "login", r.Active())
	assert.Equal(t, []string{"resultcards", "users", "login"}, views)
}

func TestRouterExternalChange(t *testing.T) {
	loc := NewLocation("#logs")
	r := NewRouter(loc, "dashboard", nil)
	defer r.Close()
	require.Equal(t, "logs", r.Active())

	var got string
	r.Subscribe(context.Background(), func(v string) { got = v })
	loc.Set("#intrusion-detection")
	assert.Equal(t, "intrusion-detection", got)
}

func TestRouterNavigateFromSubscriberIsQueued(t *testing.T) {
	loc := NewLocation("")
	r := NewRouter(loc, "dashboard", nil)
	defer r.Close()

	var order []string
	r.Subscribe(context.Background(), func(v string) {
		order = append(order, "first:"+v)
		if v == "users" {
			// Cross-view jump while still dispatching "users".
			r.Navigate("edit-profile")
			order = append(order, "first:after-navigate")
		}
	})
	r.Subscribe(context.Background(), func(v string) {
		order = append(order, "second:"+v)
	})

	r.Navigate("users")

	assert.Equal(t, []string{
		"first:users",
		"first:after-navigate",
		"second:users",
		"first:edit-profile",
		"second:edit-profile",
	}, order)
	assert.Equal(t, "edit-profile", r.Active())
}

func TestRouterUnsubscribeAndContextCancel(t *testing.T) {
	loc := NewLocation("")
	r := NewRouter(loc, "dashboard", nil)
	defer r.Close()

	var mu sync.Mutex
	calls := 0
	id := r.Subscribe(context.Background(), func(string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	r.Navigate("a")
	r.Unsubscribe(id)
	r.Navigate("b")

	ctx, cancel := context.WithCancel(context.Background())
	sid := r.Subscribe(ctx, func(string) {})
	cancel()
	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		_, ok := r.subscribers[sid]
		return !ok
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestRouterCloseStopsWatching(t *testing.T) {
	loc := NewLocation("")
	r := NewRouter(loc, "dashboard", nil)
	r.Close()
	r.Close()
	loc.Set("#users")
	assert.Equal(t, "dashboard", r.Active())
}
