// ABOUTME: Lifecycle around the external code-scanning collaborator
// ABOUTME: Accepts at most one decode per session and always releases the scanner

package identity

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Scan error messages shown to the user.
const (
	ScanErrorMessage   = "QR scan error. Please try again."
	CameraErrorMessage = "Could not access camera. Please ensure you have granted permission."
)

// ErrScannerRunning is returned when Start is called on a running scanner.
var ErrScannerRunning = errors.New("scanner already running")

// Scanner is the decode loop. Start begins delivering decodes and errors to
// the callbacks; Stop releases its resources and must be safe to call from
// inside a callback and more than once.
type Scanner interface {
	Start(onDecode func(payload string), onError func(msg string)) error
	Stop() error
}

// noise is the set of per-frame decode chatter that is not a real failure.
var noise = []string{"getImageData", "IndexSizeError", "QR code parse error"}

// ScanMessage maps a raw scanner error to user-facing text. ok is false for
// decode noise that should be dropped.
func ScanMessage(raw string) (msg string, ok bool) {
	for _, n := range noise {
		if strings.Contains(raw, n) {
			return "", false
		}
	}
	if strings.Contains(raw, "Failed") {
		return CameraErrorMessage, true
	}
	return ScanErrorMessage, true
}

// ScanSession owns one mount of the scanner.
type ScanSession struct {
	scanner  Scanner
	onAccept func(payload string)
	onError  func(msg string)
	logger   *slog.Logger

	mu       sync.Mutex
	accepted bool
	closed   bool
	stopOnce sync.Once
}

// StartScan starts scanner and returns the session that guards it. onAccept
// runs at most once. onError receives filtered, user-facing messages.
func StartScan(scanner Scanner, onAccept func(payload string), onError func(msg string), logger *slog.Logger) (*ScanSession, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ScanSession{
		scanner:  scanner,
		onAccept: onAccept,
		onError:  onError,
		logger:   logger.With("component", "scan_session"),
	}
	if err := scanner.Start(s.decoded, s.failed); err != nil {
		s.logger.Warn("scanner failed to start", "error", err)
		return nil, err
	}
	return s, nil
}

func (s *ScanSession) decoded(payload string) {
	s.mu.Lock()
	if s.accepted || s.closed {
		s.mu.Unlock()
		s.logger.Debug("ignoring decode after acceptance")
		return
	}
	s.accepted = true
	s.mu.Unlock()

	s.stop()
	s.onAccept(payload)
}

func (s *ScanSession) failed(raw string) {
	s.mu.Lock()
	done := s.accepted || s.closed
	s.mu.Unlock()
	if done {
		return
	}
	msg, ok := ScanMessage(raw)
	if !ok {
		return
	}
	s.logger.Debug("scan error", "raw", raw)
	if s.onError != nil {
		s.onError(msg)
	}
}

// Accepted reports whether a decode has been consumed.
func (s *ScanSession) Accepted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Close releases the scanner whether or not a decode happened.
func (s *ScanSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
}

func (s *ScanSession) stop() {
	s.stopOnce.Do(func() {
		if err := s.scanner.Stop(); err != nil {
			s.logger.Warn("stopping scanner", "error", err)
		}
	})
}
