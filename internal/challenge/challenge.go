// ABOUTME: Human-verification challenge that gates credential submission
// ABOUTME: A usability gate only; the Checker seam allows verification to move server-side

package challenge

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

// Length is the number of characters in a generated challenge.
const Length = 6

// Alphabet is the set challenge characters are drawn from.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MismatchMessage is shown to the user when the submission does not match.
const MismatchMessage = "Incorrect CAPTCHA. Please try again."

// ErrMismatch is returned by Verify when the submission does not match.
var ErrMismatch = errors.New("challenge mismatch")

// Checker decides whether a submission answers the challenge text.
type Checker interface {
	Check(text, submitted string) bool
}

// ExactChecker compares the submission byte for byte, case-sensitive.
type ExactChecker struct{}

// Check implements Checker.
func (ExactChecker) Check(text, submitted string) bool {
	return text == submitted
}

// State is a snapshot of the gate.
type State struct {
	Text      string
	Submitted string
	Failed    bool
}

// Gate holds the current challenge.
type Gate struct {
	mu        sync.Mutex
	text      string
	submitted string
	failed    bool

	intn    func(n int) int
	checker Checker
}

// Option configures a Gate.
type Option func(*Gate)

// WithRand replaces the random source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(g *Gate) { g.intn = intn }
}

// WithChecker replaces the local exact-match check.
func WithChecker(c Checker) Option {
	return func(g *Gate) { g.checker = c }
}

// New creates a gate and generates its first challenge.
func New(opts ...Option) *Gate {
	g := &Gate{intn: rand.IntN, checker: ExactChecker{}}
	for _, opt := range opts {
		opt(g)
	}
	g.Generate()
	return g
}

// Generate replaces the challenge text and clears the submission and failure flag.
func (g *Gate) Generate() string {
	var b strings.Builder
	b.Grow(Length)
	for range Length {
		b.WriteByte(Alphabet[g.intn(len(Alphabet))])
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.text = b.String()
	g.submitted = ""
	g.failed = false
	return g.text
}

// Text returns the current challenge text.
func (g *Gate) Text() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text
}

// Verify records submitted and checks it against the current text.
// On mismatch the gate is marked failed and ErrMismatch is returned.
func (g *Gate) Verify(submitted string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted = submitted
	if !g.checker.Check(g.text, submitted) {
		g.failed = true
		return ErrMismatch
	}
	g.failed = false
	return nil
}

// Failed reports whether the last verification failed.
func (g *Gate) Failed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failed
}

// Snapshot returns the current state.
func (g *Gate) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{Text: g.text, Submitted: g.submitted, Failed: g.failed}
}
