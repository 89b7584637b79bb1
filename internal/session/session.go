// ABOUTME: Session identity types and the process-wide session context
// ABOUTME: Reads are open to every component; writes go through the Writer held by resolvers and logout

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Role is the server-assigned role of the authenticated subject.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
	RoleParent  Role = "Parent"
)

// Known reports whether r is one of the four roles the dashboard has panels for.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Keys used in the persisted key-value area.
const (
	KeyToken  = "token"
	KeyRole   = "role"
	KeyUserID = "userId"
)

var (
	// ErrIncomplete is returned when a session is missing its token, role, or subject.
	ErrIncomplete = errors.New("incomplete session")
)

// Session is the authenticated identity held by the client.
type Session struct {
	Token     string
	Role      Role
	SubjectID string
}

// Validate checks that all three fields are present.
func (s Session) Validate() error {
	switch {
	case s.Token == "":
		return fmt.Errorf("%w: token", ErrIncomplete)
	case s.Role == "":
		return fmt.Errorf("%w: role", ErrIncomplete)
	case s.SubjectID == "":
		return fmt.Errorf("%w: subject", ErrIncomplete)
	}
	return nil
}

// KV is the persisted client-side key-value area.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Change describes a session transition delivered to listeners.
// Live is false when the session was destroyed; Reason is "login", "restore",
// "logout", or "expired".
type Change struct {
	Session Session
	Live    bool
	Reason  string
}

// Context holds the single live Session of the process. It is passed down to
// every component that needs to read the session; only the paired Writer can
// change it.
type Context struct {
	mu        sync.RWMutex
	current   *Session
	kv        KV
	listeners map[int]func(Change)
	nextID    int
	logger    *slog.Logger
}

// Writer is the write capability for a Context. It is handed only to the
// identity resolvers, the logout action, and the expiry handler.
type Writer struct {
	c *Context
}

// NewContext creates an empty session context backed by kv. Pass nil logger for default.
func NewContext(kv KV, logger *slog.Logger) (*Context, *Writer) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{
		kv:        kv,
		listeners: make(map[int]func(Change)),
		logger:    logger.With("component", "session"),
	}
	return c, &Writer{c: c}
}

// Init restores a previously persisted session. A partial record (for example a
// token without a role) is treated as no session and is cleared from storage.
func (c *Context) Init(ctx context.Context) error {
	token, _, err := c.kv.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	role, _, err := c.kv.Get(ctx, KeyRole)
	if err != nil {
		return fmt.Errorf("reading role: %w", err)
	}
	subject, _, err := c.kv.Get(ctx, KeyUserID)
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}

	s := Session{Token: token, Role: Role(role), SubjectID: subject}
	if s.Token == "" && s.Role == "" && s.SubjectID == "" {
		return nil
	}
	if err := s.Validate(); err != nil {
		c.logger.Warn("discarding partial session", "error", err)
		if err := c.kv.Delete(ctx, KeyToken, KeyRole, KeyUserID); err != nil {
			return fmt.Errorf("clearing partial session: %w", err)
		}
		return nil
	}

	c.set(&s, "restore")
	c.logger.Info("session restored", "role", s.Role, "subject", s.SubjectID)
	return nil
}

// Current returns the live session, if any.
func (c *Context) Current() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Session{}, false
	}
	return *c.current, true
}

// Token returns the live bearer token or an empty string.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return ""
	}
	return c.current.Token
}

// OnChange registers fn to be called synchronously after every transition.
// The returned function removes the listener.
func (c *Context) OnChange(fn func(Change)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// set swaps the live session and notifies listeners outside the lock.
func (c *Context) set(s *Session, reason string) {
	c.mu.Lock()
	prev := c.current
	if s == nil && prev == nil {
		c.mu.Unlock()
		return
	}
	c.current = s
	fns := make([]func(Change), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	change := Change{Live: s != nil, Reason: reason}
	switch {
	case s != nil:
		change.Session = *s
	case prev != nil:
		change.Session = *prev
	}
	for _, fn := range fns {
		fn(change)
	}
}

// Establish persists s and makes it the live session.
func (w *Writer) Establish(ctx context.Context, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	kv := w.c.kv
	if err := kv.Set(ctx, KeyToken, s.Token); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	if err := kv.Set(ctx, KeyRole, string(s.Role)); err != nil {
		return fmt.Errorf("persisting role: %w", err)
	}
	if err := kv.Set(ctx, KeyUserID, s.SubjectID); err != nil {
		return fmt.Errorf("persisting user id: %w", err)
	}

	w.c.logger.Info("auth_event", "event", "session_established", "role", s.Role, "subject", s.SubjectID)
	w.c.set(&s, "login")
	return nil
}

// Destroy removes the session from storage and memory. It is a no-op when no
// session is live, so repeated expiry signals are harmless.
func (w *Writer) Destroy(ctx context.Context, reason string) error {
	if _, ok := w.c.Current(); !ok {
		return nil
	}
	if err := w.c.kv.Delete(ctx, KeyToken, KeyRole, KeyUserID); err != nil {
		// The in-memory session is still cleared so the process stops using it.
		w.c.set(nil, reason)
		return fmt.Errorf("clearing stored session: %w", err)
	}
	w.c.logger.Info("auth_event", "event", reason)
	w.c.set(nil, reason)
	return nil
}
