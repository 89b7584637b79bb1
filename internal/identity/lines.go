// ABOUTME: Scanner that reads one payload per line from a reader
// ABOUTME: Lets the terminal dashboard and tests stand in for a camera

package identity

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// LineScanner delivers each non-blank line of r as a decoded payload.
type LineScanner struct {
	r      io.Reader
	closer io.Closer

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewLineScanner creates a scanner over r. r is never closed, so after Stop
// the reader goroutine stays parked in Read until the next line or EOF. Over
// stdin that lasts at most the life of the process.
func NewLineScanner(r io.Reader) *LineScanner {
	return &LineScanner{r: r}
}

// NewOwnedLineScanner creates a scanner that owns rc. Stop closes rc, which
// unblocks a pending Read and lets the reader goroutine exit.
func NewOwnedLineScanner(rc io.ReadCloser) *LineScanner {
	return &LineScanner{r: rc, closer: rc}
}

// NewPipeScanner returns a scanner fed through the returned writer. Stop
// closes the pipe, so writes after it fail with io.ErrClosedPipe.
func NewPipeScanner() (*LineScanner, *io.PipeWriter) {
	pr, pw := io.Pipe()
	return &LineScanner{r: pr, closer: pr}, pw
}

// Start begins reading in a goroutine. Lines read after Stop are discarded.
func (l *LineScanner) Start(onDecode func(string), onError func(string)) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrScannerRunning
	}
	l.running = true
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	go func() {
		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			select {
			case <-done:
				return
			default:
			}
			if line := strings.TrimSpace(sc.Text()); line != "" {
				onDecode(line)
			}
		}
		select {
		case <-done:
			return
		default:
		}
		if err := sc.Err(); err != nil {
			onError(fmt.Sprintf("Failed to read scanner input: %v", err))
		}
	}()
	return nil
}

// Stop signals the reader goroutine to discard further input. It does not
// wait, so it is safe to call from inside a callback.
func (l *LineScanner) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.running = false
	close(l.done)
	if l.closer != nil {
		_ = l.closer.Close()
	}
	return nil
}
