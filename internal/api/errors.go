// ABOUTME: Error taxonomy for the remote record service client
// ABOUTME: Remote rejections, transport failures, shape violations, and session expiry

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrNetwork wraps transport failures where no response was received.
	ErrNetwork = errors.New("network error")
	// ErrNotArray is returned when a list endpoint answers with something other than an array.
	ErrNotArray = errors.New("response is not an array")
	// ErrShape is returned when an object endpoint answers with an unexpected shape.
	ErrShape = errors.New("response has unexpected shape")
	// ErrSessionExpired matches remote errors that carry a session-expiry signature.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoSession is returned before any request is made when an authenticated call has no token.
	ErrNoSession = errors.New("no session")
	// ErrInvalidID is returned before any request is made when a path id is blank.
	ErrInvalidID = errors.New("invalid id")
)

// NetworkMessage is the user-facing text for ErrNetwork.
const NetworkMessage = "Network error"

// expirySignatures are substrings the remote service uses for invalid or expired tokens.
var expirySignatures = []string{
	"jwt expired",
	"Token verification failed",
	"Unauthorized - Invalid token",
}

// Error is a remote rejection with a structured or raw body.
type Error struct {
	Status  int
	Message string
	Body    []byte

	expired bool
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Is lets errors.Is(err, ErrSessionExpired) match expired-session rejections.
func (e *Error) Is(target error) bool {
	return target == ErrSessionExpired && e.expired
}

// Expired reports whether the rejection carries a session-expiry signature.
func (e *Error) Expired() bool {
	return e.expired
}

// newError builds an Error from a non-2xx response. The message is taken from
// the body's "error" field, then "message", then the raw body text.
func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		if s, ok := fields["error"].(string); ok && s != "" {
			e.Message = s
		} else if s, ok := fields["message"].(string); ok && s != "" {
			e.Message = s
		}
	} else {
		var s string
		if json.Unmarshal(body, &s) == nil {
			e.Message = s
		} else if text := strings.TrimSpace(string(body)); text != "" && !bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
			e.Message = text
		}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		text := e.Message
		if text == "" {
			text = string(body)
		}
		for _, sig := range expirySignatures {
			if strings.Contains(text, sig) {
				e.expired = true
				break
			}
		}
	}
	return e
}

// Message returns the text a view should show for err: the remote message,
// "Network error" for transport failures, or fallback otherwise.
func Message(err error, fallback string) string {
	var apiErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrNetwork):
		return NetworkMessage
	}
	return fallback
}
