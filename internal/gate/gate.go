// ABOUTME: Login screen controller: credential form behind the challenge, or scanner mode
// ABOUTME: Owns the scan session for its mount and releases it on toggle, acceptance, and close

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/vault-dashboard/internal/challenge"
	"github.com/2389/vault-dashboard/internal/identity"
	"github.com/2389/vault-dashboard/internal/session"
)

// Mode is the identity resolution mode shown on the login screen.
type Mode string

const (
	ModeCredentials Mode = "credentials"
	ModeScanner     Mode = "scanner"
)

var (
	// ErrWrongMode is returned when an action belongs to the other mode.
	ErrWrongMode = errors.New("action not available in this mode")
	// ErrNoScanner is returned when scanner mode is requested without a scanner.
	ErrNoScanner = errors.New("no scanner configured")
	// ErrClosed is returned by actions on a closed gate.
	ErrClosed = errors.New("gate closed")
)

// ScannerFactory builds a fresh scanner for each scanner-mode mount.
type ScannerFactory func() (identity.Scanner, error)

// Config wires a Gate.
type Config struct {
	Challenge   *challenge.Gate
	Credentials *identity.CredentialResolver
	Proof       *identity.ProofTokenResolver
	// Scanners may be nil, which disables scanner mode.
	Scanners ScannerFactory
	// OnChange runs after any state change without gate locks held.
	OnChange func()
	Logger   *slog.Logger
}

// View is the login screen model. The challenge text is included because
// the user has to copy it; it is never logged.
type View struct {
	Mode            Mode
	Challenge       string
	ChallengeFailed bool
	Err             string
	Busy            bool
	Scanning        bool
	ScanAvailable   bool
}

// Gate is the login screen controller.
type Gate struct {
	challenge *challenge.Gate
	creds     *identity.CredentialResolver
	proof     *identity.ProofTokenResolver
	scanners  ScannerFactory
	onChange  func()
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	mode   Mode
	err    string
	busy   bool
	scan   *identity.ScanSession
	closed bool
	// mismatch stays set after a failed challenge check until the next
	// Submit or Toggle, even though the challenge itself is regenerated.
	mismatch bool
}

// New mounts a gate in credentials mode. Proof resolutions started by the
// scanner are bounded by ctx.
func New(ctx context.Context, cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ch := cfg.Challenge
	if ch == nil {
		ch = challenge.New()
	} else {
		ch.Generate()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Gate{
		challenge: ch,
		creds:     cfg.Credentials,
		proof:     cfg.Proof,
		scanners:  cfg.Scanners,
		onChange:  cfg.OnChange,
		logger:    logger.With("component", "gate"),
		ctx:       ctx,
		cancel:    cancel,
		mode:      ModeCredentials,
	}
}

func (g *Gate) changed() {
	if g.onChange != nil {
		g.onChange()
	}
}

// Mode returns the current mode.
func (g *Gate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// View returns the login screen model.
func (g *Gate) View() View {
	ch := g.challenge.Snapshot()
	g.mu.Lock()
	defer g.mu.Unlock()
	return View{
		Mode:            g.mode,
		Challenge:       ch.Text,
		ChallengeFailed: g.mismatch || ch.Failed,
		Err:             g.err,
		Busy:            g.busy,
		Scanning:        g.scan != nil && !g.scan.Accepted(),
		ScanAvailable:   g.scanners != nil,
	}
}

// Toggle switches between credentials and scanner mode. Either way the
// challenge is regenerated; leaving scanner mode releases the scanner.
func (g *Gate) Toggle() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.mode == ModeCredentials && g.scanners == nil {
		g.mu.Unlock()
		return ErrNoScanner
	}
	prev := g.scan
	g.scan = nil
	g.err = ""
	g.mismatch = false
	if g.mode == ModeScanner {
		g.mode = ModeCredentials
	} else {
		g.mode = ModeScanner
	}
	mode := g.mode
	g.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	g.challenge.Generate()
	g.logger.Debug("mode toggled", "mode", string(mode))

	if mode == ModeScanner {
		g.startScan()
	}
	g.changed()
	return nil
}

func (g *Gate) startScan() {
	sc, err := g.scanners()
	if err == nil {
		var s *identity.ScanSession
		s, err = identity.StartScan(sc, g.accept, g.scanError, g.logger)
		if err == nil {
			g.mu.Lock()
			if g.closed || g.mode != ModeScanner {
				g.mu.Unlock()
				s.Close()
				return
			}
			g.scan = s
			g.mu.Unlock()
			return
		}
	}
	g.logger.Warn("scanner unavailable", "error", err)
	g.mu.Lock()
	g.err = identity.CameraErrorMessage
	g.mu.Unlock()
}

func (g *Gate) scanError(msg string) {
	g.mu.Lock()
	g.err = msg
	g.mu.Unlock()
	g.changed()
}

// accept runs on the scanner's goroutine after the scan session has
// already released the scanner.
func (g *Gate) accept(payload string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.busy = true
	g.err = ""
	g.wg.Add(1)
	g.mu.Unlock()
	g.changed()

	go func() {
		defer g.wg.Done()
		_, err := g.proof.Resolve(g.ctx, payload)

		g.mu.Lock()
		g.busy = false
		if err != nil && !g.closed {
			var f *identity.Failure
			if errors.As(err, &f) {
				g.err = f.Message
			} else {
				g.err = identity.QRLoginFailedMessage
			}
			g.mode = ModeCredentials
			g.scan = nil
		}
		g.mu.Unlock()
		g.changed()
	}()
}

// Submit checks the challenge answer and, only if it matches, resolves
// creds into a session.
func (g *Gate) Submit(ctx context.Context, creds identity.Credentials, answer string) (session.Session, error) {
	g.mu.Lock()
	switch {
	case g.closed:
		g.mu.Unlock()
		return session.Session{}, ErrClosed
	case g.mode != ModeCredentials:
		g.mu.Unlock()
		return session.Session{}, ErrWrongMode
	case g.busy:
		g.mu.Unlock()
		return session.Session{}, fmt.Errorf("%w: login in progress", ErrWrongMode)
	}
	g.mismatch = false
	g.mu.Unlock()

	if err := g.challenge.Verify(answer); err != nil {
		g.challenge.Generate()
		g.mu.Lock()
		g.err = challenge.MismatchMessage
		g.mismatch = true
		g.mu.Unlock()
		g.changed()
		return session.Session{}, err
	}

	g.mu.Lock()
	g.busy = true
	g.err = ""
	g.mu.Unlock()
	g.changed()

	s, err := g.creds.Resolve(ctx, creds)

	g.mu.Lock()
	g.busy = false
	if err != nil && !g.closed {
		var f *identity.Failure
		if errors.As(err, &f) {
			g.err = f.Message
		} else {
			g.err = identity.LoginFailedMessage
		}
	}
	g.mu.Unlock()
	g.changed()
	return s, err
}

// Close releases the scanner and cancels any proof resolution in flight.
// It does not wait; use Wait for that.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	scan := g.scan
	g.scan = nil
	g.mu.Unlock()

	if scan != nil {
		scan.Close()
	}
	g.cancel()
	g.logger.Debug("gate closed")
}

// Wait blocks until proof resolutions started by the scanner return.
func (g *Gate) Wait() {
	g.wg.Wait()
}
