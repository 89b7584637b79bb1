// ABOUTME: Top-level controller that wires session, router, login gate, and role panels together
// ABOUTME: Mounts the gate while logged out and the role's panel while a session is live

package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/vault-dashboard/internal/challenge"
	"github.com/2389/vault-dashboard/internal/dedupe"
	"github.com/2389/vault-dashboard/internal/gate"
	"github.com/2389/vault-dashboard/internal/identity"
	"github.com/2389/vault-dashboard/internal/nav"
	"github.com/2389/vault-dashboard/internal/panel"
	"github.com/2389/vault-dashboard/internal/roles"
	"github.com/2389/vault-dashboard/internal/session"
)

// SessionExpiredMessage is shown once per expired session.
const SessionExpiredMessage = "Session expired. Please log in again."

// expiryWindow collapses the burst of rejections that in-flight requests
// produce when a token dies.
const expiryWindow = time.Minute

// ErrClosed is returned by actions on a closed dashboard.
var ErrClosed = errors.New("dashboard closed")

// Remote is the record service as the dashboard uses it.
type Remote interface {
	panel.Client
	identity.CredentialAuthenticator
	identity.ProofAuthenticator
	SetExpiryHandler(fn func(error))
}

// Config wires a Dashboard.
type Config struct {
	Session  *session.Context
	Writer   *session.Writer
	Remote   Remote
	Location nav.Source
	// Scanners may be nil, which disables scanner login.
	Scanners gate.ScannerFactory
	// WatchInterval is the token expiry check period; zero disables it.
	WatchInterval time.Duration
	// ChallengeOptions configure every challenge the login screen creates.
	ChallengeOptions []challenge.Option
	// OnChange runs after any visible state change.
	OnChange func()
	// Notify receives user notifications such as session expiry.
	Notify func(msg string)
	Logger *slog.Logger
}

// Dashboard is the mounted application.
type Dashboard struct {
	cfg     Config
	logger  *slog.Logger
	router  *nav.Router
	expired *dedupe.Window

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	gate      *gate.Gate
	panel     panel.Panel
	activated string
	notice    string
	closed    bool

	stopSession func()
}

// New mounts the dashboard for whatever session cfg.Session currently
// holds. Call Init on the session context first to restore a saved one.
func New(ctx context.Context, cfg Config) *Dashboard {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	d := &Dashboard{
		cfg:     cfg,
		logger:  logger.With("component", "dashboard"),
		expired: dedupe.New(expiryWindow, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.router = nav.NewRouter(cfg.Location, roles.ViewLogin, logger)
	d.router.Subscribe(ctx, d.onView)
	d.stopSession = cfg.Session.OnChange(d.onSession)
	cfg.Remote.SetExpiryHandler(func(error) { d.expire() })

	if s, ok := cfg.Session.Current(); ok {
		d.mountPanel(s, false)
	} else {
		d.mountGate()
	}

	if cfg.WatchInterval > 0 {
		d.wg.Go(func() {
			cfg.Session.Watch(ctx, cfg.WatchInterval, d.expire)
		})
	}
	return d
}

func (d *Dashboard) changed() {
	if d.cfg.OnChange != nil {
		d.cfg.OnChange()
	}
}

func (d *Dashboard) onSession(c session.Change) {
	if c.Live {
		d.mountPanel(c.Session, c.Reason == "login")
		return
	}
	d.mountGate()
}

// mountPanel swaps in the panel for s. fresh logins start at the role's
// home view; restored sessions keep the current location.
func (d *Dashboard) mountPanel(s session.Session, fresh bool) {
	variant := roles.PanelFor(s.Role)
	p := panel.New(d.ctx, variant, d.cfg.Remote, panel.Deps{
		Navigator: d.router,
		SubjectID: s.SubjectID,
		OnChange:  d.changed,
		Logger:    d.logger,
	})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		p.Close()
		return
	}
	old, g := d.panel, d.gate
	d.panel, d.gate = p, nil
	d.activated = ""
	d.mu.Unlock()

	d.retire(old, g)
	d.logger.Info("panel mounted", "variant", string(variant), "subject", s.SubjectID)

	home := variant.Home()
	if home == "" {
		home = roles.ViewDashboard
	}
	d.router.SetHome(home)
	if fresh {
		d.router.Reset()
	}
	d.activate(d.router.Active())
	d.changed()
}

func (d *Dashboard) mountGate() {
	ch := challenge.New(d.cfg.ChallengeOptions...)
	g := gate.New(d.ctx, gate.Config{
		Challenge:   ch,
		Credentials: identity.NewCredentialResolver(d.cfg.Remote, d.cfg.Writer, ch, d.logger),
		Proof:       identity.NewProofTokenResolver(d.cfg.Remote, d.cfg.Writer, d.logger),
		Scanners:    d.cfg.Scanners,
		OnChange:    d.changed,
		Logger:      d.logger,
	})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		g.Close()
		return
	}
	old, og := d.panel, d.gate
	d.panel, d.gate = nil, g
	d.activated = ""
	d.mu.Unlock()

	d.retire(old, og)
	d.logger.Debug("login gate mounted")
	d.router.SetHome(roles.ViewLogin)
	d.router.Reset()
	d.changed()
}

// retire closes a replaced panel or gate. Waiting happens off the caller's
// goroutine, which may be one of the fetches being waited on.
func (d *Dashboard) retire(p panel.Panel, g *gate.Gate) {
	if p != nil {
		p.Close()
		d.wg.Go(p.Wait)
	}
	if g != nil {
		g.Close()
		d.wg.Go(g.Wait)
	}
}

func (d *Dashboard) onView(view string) {
	d.activate(view)
	d.changed()
}

// activate hands view to the mounted panel once per change.
func (d *Dashboard) activate(view string) {
	d.mu.Lock()
	p := d.panel
	if p == nil || d.activated == view {
		d.mu.Unlock()
		return
	}
	d.activated = view
	d.mu.Unlock()
	p.Activate(view)
}

// expire ends the live session after a remote expiry signal or a local
// expiry check. Repeats for the same token are dropped.
func (d *Dashboard) expire() {
	token := d.cfg.Session.Token()
	if token == "" || !d.expired.First(token) {
		return
	}
	d.logger.Info("auth_event", "event", "session_expired")
	if err := d.cfg.Writer.Destroy(d.ctx, "expired"); err != nil {
		d.logger.Warn("clearing expired session", "error", err)
	}
	d.notify(SessionExpiredMessage)
}

func (d *Dashboard) notify(msg string) {
	d.mu.Lock()
	d.notice = msg
	d.mu.Unlock()
	if d.cfg.Notify != nil {
		d.cfg.Notify(msg)
	}
	d.changed()
}

// DismissNotice clears the last notification.
func (d *Dashboard) DismissNotice() {
	d.mu.Lock()
	d.notice = ""
	d.mu.Unlock()
	d.changed()
}

// Logout destroys the live session.
func (d *Dashboard) Logout(ctx context.Context) error {
	if d.isClosed() {
		return ErrClosed
	}
	return d.cfg.Writer.Destroy(ctx, "logout")
}

// Navigate points the location at view.
func (d *Dashboard) Navigate(view string) {
	d.router.Navigate(view)
}

// Gate returns the login gate, or nil while a session is live.
func (d *Dashboard) Gate() *gate.Gate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gate
}

// Panel returns the mounted panel, or nil while logged out.
func (d *Dashboard) Panel() panel.Panel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.panel
}

func (d *Dashboard) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close unmounts everything and waits for background work to stop.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	p, g := d.panel, d.gate
	d.panel, d.gate = nil, nil
	d.mu.Unlock()

	d.stopSession()
	d.cfg.Remote.SetExpiryHandler(nil)
	d.cancel()
	d.router.Close()
	d.retire(p, g)
	d.wg.Wait()
	d.logger.Debug("dashboard closed")
}
