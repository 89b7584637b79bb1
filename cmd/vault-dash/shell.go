// ABOUTME: Terminal shell: reads commands, owns the location fragment, and re-renders on change
// ABOUTME: Also supplies the line-based scanner used for proof-token login

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/2389/vault-dashboard/internal/config"
	"github.com/2389/vault-dashboard/internal/dashboard"
	"github.com/2389/vault-dashboard/internal/gate"
	"github.com/2389/vault-dashboard/internal/identity"
	"github.com/2389/vault-dashboard/internal/nav"
)

// renderDelay coalesces bursts of state changes into one redraw.
const renderDelay = 40 * time.Millisecond

type shell struct {
	in       io.Reader
	out      io.Writer
	location *nav.Location

	outMu sync.Mutex
	dirty chan struct{}

	pipeMu sync.Mutex
	pipe   *io.PipeWriter
}

func newShell(in io.Reader, out io.Writer) *shell {
	return &shell{
		in:       in,
		out:      out,
		location: nav.NewLocation(""),
		dirty:    make(chan struct{}, 1),
	}
}

// invalidate schedules a redraw. It never blocks, so it is safe to call from
// any controller goroutine.
func (s *shell) invalidate() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *shell) notify(msg string) {
	s.printf(color.YellowString("! %s\n", msg))
}

func (s *shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// scannerFactory builds the proof-token scanner source. With no path, payloads
// are typed at the prompt with the qr command.
func (s *shell) scannerFactory(cfg config.ScannerConfig) (gate.ScannerFactory, error) {
	switch cfg.Kind {
	case "none":
		return nil, nil
	case "lines":
	default:
		return nil, fmt.Errorf("unsupported scanner kind %q", cfg.Kind)
	}

	if cfg.Path != "" {
		path := cfg.Path
		return func() (identity.Scanner, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("opening scanner input: %w", err)
			}
			return identity.NewOwnedLineScanner(f), nil
		}, nil
	}

	return func() (identity.Scanner, error) {
		sc, pw := identity.NewPipeScanner()
		s.pipeMu.Lock()
		s.pipe = pw
		s.pipeMu.Unlock()
		return sc, nil
	}, nil
}

// feed hands a typed payload to the running pipe scanner.
func (s *shell) feed(payload string) error {
	s.pipeMu.Lock()
	pw := s.pipe
	s.pipeMu.Unlock()
	if pw == nil {
		return fmt.Errorf("no scanner is running; use scan first")
	}
	if _, err := io.WriteString(pw, payload+"\n"); err != nil {
		return fmt.Errorf("scanner is not running: %w", err)
	}
	return nil
}

func (s *shell) run(ctx context.Context, d *dashboard.Dashboard) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(s.in)
		sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	s.draw(d)
	timer := time.NewTimer(renderDelay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.printf("\n")
			return nil
		case err := <-readErr:
			s.printf("\n")
			return err
		case <-s.dirty:
			timer.Reset(renderDelay)
		case <-timer.C:
			s.draw(d)
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				s.prompt(d)
				continue
			}
			quit, err := s.exec(ctx, d, line)
			if err != nil {
				s.printf("%s\n", color.RedString("Error: %v", err))
			}
			if quit {
				return nil
			}
			s.draw(d)
		}
	}
}

func (s *shell) draw(d *dashboard.Dashboard) {
	scr := d.Screen()
	s.outMu.Lock()
	defer s.outMu.Unlock()
	render(s.out, scr)
	writePrompt(s.out, scr)
}

func (s *shell) prompt(d *dashboard.Dashboard) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	writePrompt(s.out, d.Screen())
}
