// ABOUTME: HTTP client for the remote record service with bearer auth
// ABOUTME: Intercepts session-expiry rejections globally and hands them to a single handler

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxBodyBytes = 8 << 20

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Client talks to the record service.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	userAgent string
	logger    *slog.Logger

	mu        sync.RWMutex
	onExpired func(error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d, Transport: c.http.Transport}
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.With("component", "api")
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for baseURL (for example "http://localhost:3000/api").
// tokens may be nil for unauthenticated use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		tokens:    tokens,
		userAgent: "vault-dash",
		logger:    slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetExpiryHandler registers fn to be called for every response that carries
// a session-expiry signature. Callers coalesce repeated signals themselves.
func (c *Client) SetExpiryHandler(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	session bool
}

// do sends req and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	token := c.tokens.Token()
	if req.session && token == "" {
		return nil, ErrNoSession
	}

	u := c.baseURL + "/" + strings.TrimLeft(req.path, "/")
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("request failed", "method", req.method, "path", req.path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	c.logger.Debug("request done",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, data)
		if apiErr.expired {
			c.mu.RLock()
			fn := c.onExpired
			c.mu.RUnlock()
			c.logger.Info("auth_event", "event", "session_expired", "status", resp.StatusCode)
			if fn != nil {
				fn(apiErr)
			}
		}
		return nil, apiErr
	}
	return data, nil
}

// decodeList decodes a JSON array of arbitrary items.
func decodeList(data []byte) ([]any, error) {
	v, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	return list, nil
}

// decodeObject decodes a JSON object.
func decodeObject(data []byte) (map[string]any, error) {
	v, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrShape
	}
	return obj, nil
}

// decodeAny decodes arbitrary JSON, keeping numbers as json.Number.
func decodeAny(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrShape
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	return v, nil
}

// jsonKind names the JSON type of a decoded value for error messages.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	default:
		return "an object"
	}
}

func pathID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return url.PathEscape(id), nil
}
