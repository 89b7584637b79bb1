// ABOUTME: Shared panel contract, screen model, and the lifecycle every variant embeds
// ABOUTME: A panel reacts to view activations, owns its resources and selection, and never blocks

package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/roles"
)

// Notice is a recoverable, non-data state of a view.
type Notice string

const (
	NoticeNone        Notice = ""
	NoticeUnknownView Notice = "unknown-view"
	NoticeNoTarget    Notice = "no-target"
	NoticeUnknownRole Notice = "unknown-role"
)

// Fixed panel messages.
const (
	InvalidDataMessage     = "Invalid data format received from server"
	InvalidLogsDataMessage = "Invalid logs data format received from server"
	InvalidUserIDMessage   = "Invalid user ID"
	InvalidIDCardMessage   = "Invalid ID card data received"
	UnknownRoleMessage     = "Unknown role"
	UnknownErrorMessage    = "Unknown error"
)

var (
	// ErrNoTarget is returned by actions that need a selection when none is held.
	ErrNoTarget = errors.New("no target selected")
	// ErrValidation is returned for local validation failures; no request is made.
	ErrValidation = errors.New("validation failed")
	// ErrClosed is returned by actions on a closed panel.
	ErrClosed = errors.New("panel closed")
)

// Navigator reprograms the location. Panels use it for cross-view jumps.
type Navigator interface {
	Navigate(view string)
}

// Screen is everything a view needs to render.
type Screen struct {
	Variant    roles.Variant
	View       string
	Notice     Notice
	NoticeText string
	Loading    bool
	Err        string
	Flash      string
	// Data holds the view model: one of the *View or *Dashboard types of
	// this package, or nil when a notice is shown.
	Data any
}

// Panel is one role variant's controller.
type Panel interface {
	Variant() roles.Variant
	// Activate switches to view, issuing whatever fetches it needs.
	Activate(view string)
	Screen() Screen
	// Close cancels in-flight work; no later completion changes state.
	Close()
	// Wait blocks until fetch goroutines have returned.
	Wait()
}

// Client is the remote surface every panel variant draws from.
type Client interface {
	AdminAPI
	TeacherAPI
	StudentAPI
	ParentAPI
}

// Deps are the collaborators shared by all variants.
type Deps struct {
	Navigator Navigator
	SubjectID string
	// OnChange runs after any state change, without panel locks held.
	OnChange func()
	Logger   *slog.Logger
}

// New builds the panel for variant. ctx bounds every fetch the panel issues.
func New(ctx context.Context, variant roles.Variant, client Client, deps Deps) Panel {
	switch variant {
	case roles.Admin:
		return NewAdmin(ctx, client, deps)
	case roles.Teacher:
		return NewTeacher(ctx, client, deps)
	case roles.Student:
		return NewStudent(ctx, client, deps)
	case roles.Parent:
		return NewParent(ctx, client, deps)
	}
	return NewUnknown(deps)
}

type tracked interface {
	Name() string
	Cancel()
	Close()
	Wait()
}

type base struct {
	ctx      context.Context
	cancel   context.CancelFunc
	variant  roles.Variant
	nav      Navigator
	onChange func()
	logger   *slog.Logger

	mu        sync.Mutex
	view      string
	actionErr string
	flash     string
	closed    bool
	resources []tracked
}

func newBase(ctx context.Context, variant roles.Variant, deps Deps) *base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	b := &base{
		ctx:      ctx,
		cancel:   cancel,
		variant:  variant,
		nav:      deps.Navigator,
		onChange: deps.OnChange,
		logger:   logger.With("component", "panel", "variant", string(variant)),
	}
	return b
}

func (b *base) Variant() roles.Variant {
	return b.variant
}

func (b *base) track(rs ...tracked) {
	b.resources = append(b.resources, rs...)
}

func (b *base) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

// enter records the new view and reports whether the variant allows it.
func (b *base) enter(view string) bool {
	b.mu.Lock()
	b.view = view
	b.actionErr = ""
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return false
	}
	b.logger.Debug("view activated", "view", view)
	return b.variant.Allows(view)
}

// keep cancels every resource the active view does not need.
func (b *base) keep(needed ...tracked) {
	for _, r := range b.resources {
		if !slices.Contains(needed, r) {
			r.Cancel()
		}
	}
}

func (b *base) currentView() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

func (b *base) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// fail records an action error built from prefix and err.
func (b *base) fail(prefix string, err error) {
	msg := prefix + api.Message(err, UnknownErrorMessage)
	b.mu.Lock()
	b.actionErr = msg
	b.mu.Unlock()
	b.logger.Warn("action failed", "action", prefix, "error", err)
	b.changed()
}

// invalid records a validation message and returns it wrapped in ErrValidation.
func (b *base) invalid(msg string) error {
	b.mu.Lock()
	b.actionErr = msg
	b.mu.Unlock()
	b.changed()
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func (b *base) succeed(flash string) {
	b.mu.Lock()
	b.actionErr = ""
	b.flash = flash
	b.mu.Unlock()
	b.changed()
}

// DismissFlash clears the success message.
func (b *base) DismissFlash() {
	b.mu.Lock()
	b.flash = ""
	b.mu.Unlock()
	b.changed()
}

// navigate jumps views. Callers must not hold b.mu: the router runs the
// activation synchronously.
func (b *base) navigate(view string) {
	if b.nav != nil && !b.isClosed() {
		b.nav.Navigate(view)
	}
}

// screen builds the common part of a Screen. resErr is the first error of
// the view's resources; an action error takes precedence.
func (b *base) screen(loading bool, resErr string) Screen {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Screen{
		Variant: b.variant,
		View:    b.view,
		Loading: loading,
		Err:     resErr,
		Flash:   b.flash,
	}
	if b.actionErr != "" {
		s.Err = b.actionErr
	}
	return s
}

func (b *base) unknownView(s Screen) Screen {
	s.Notice = NoticeUnknownView
	s.NoticeText = fmt.Sprintf("Unknown page: %s", s.View)
	s.Loading = false
	s.Data = nil
	return s
}

func (b *base) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	for _, r := range b.resources {
		r.Close()
	}
	b.logger.Debug("panel closed")
}

func (b *base) Wait() {
	for _, r := range b.resources {
		r.Wait()
	}
}

// firstErr returns the first non-empty message.
func firstErr(msgs ...string) string {
	for _, m := range msgs {
		if m != "" {
			return m
		}
	}
	return ""
}

// listError maps a list fetch error to its view message.
func listError(what, shapeMsg string) func(error) string {
	return func(err error) string {
		if errors.Is(err, api.ErrNotArray) || errors.Is(err, api.ErrShape) {
			return shapeMsg
		}
		return "Failed to load " + what + ": " + api.Message(err, UnknownErrorMessage)
	}
}
