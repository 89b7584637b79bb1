// ABOUTME: Credential and proof-token resolvers that turn a login into a live session
// ABOUTME: Both end in the same Writer.Establish call; only the credential path touches the challenge

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/session"
)

// User-facing fallbacks when the remote error carries no message.
const (
	LoginFailedMessage   = "Login failed. Please try again."
	QRLoginFailedMessage = "QR login failed. Please try again."
	MissingFieldsMessage = "Email and password are required."
	EmptyProofMessage    = "QR code did not contain a login token."
)

// ErrMissingCredentials is a local validation failure; no request is made.
var ErrMissingCredentials = errors.New("missing email or password")

// ErrEmptyProof is returned for a blank scanned payload; no request is made.
var ErrEmptyProof = errors.New("empty proof token")

// Failure is a resolution failure carrying the message to show the user.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// CredentialAuthenticator exchanges credentials for a token.
type CredentialAuthenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResult, error)
}

// ProofAuthenticator exchanges a scanned payload for a token.
type ProofAuthenticator interface {
	LoginQR(ctx context.Context, payload string) (api.LoginResult, error)
}

// Regenerator is the part of the challenge gate a failed login touches.
type Regenerator interface {
	Generate() string
}

// Credentials is the email/password form.
type Credentials struct {
	Email    string
	Password string
}

// CredentialResolver resolves credentials into a session.
type CredentialResolver struct {
	auth      CredentialAuthenticator
	writer    *session.Writer
	challenge Regenerator
	logger    *slog.Logger
}

// NewCredentialResolver creates a resolver. Pass nil logger for default.
func NewCredentialResolver(auth CredentialAuthenticator, writer *session.Writer, challenge Regenerator, logger *slog.Logger) *CredentialResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialResolver{
		auth:      auth,
		writer:    writer,
		challenge: challenge,
		logger:    logger.With("component", "credential_resolver"),
	}
}

// Resolve logs in with creds. Callers verify the challenge first. A remote
// rejection regenerates the challenge and is returned as *Failure with the
// server's message.
func (r *CredentialResolver) Resolve(ctx context.Context, creds Credentials) (session.Session, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return session.Session{}, &Failure{Message: MissingFieldsMessage, Err: ErrMissingCredentials}
	}

	res, err := r.auth.Login(ctx, email, creds.Password)
	if err != nil {
		if ctx.Err() != nil {
			return session.Session{}, ctx.Err()
		}
		r.logger.Info("auth_event", "event", "login_failed", "email", email, "reason", reason(err))
		r.challenge.Generate()
		return session.Session{}, &Failure{Message: api.Message(err, LoginFailedMessage), Err: err}
	}

	s, err := establish(ctx, r.writer, res)
	if err != nil {
		r.challenge.Generate()
		return session.Session{}, &Failure{Message: LoginFailedMessage, Err: err}
	}
	r.logger.Info("auth_event", "event", "login_success", "email", email, "role", s.Role)
	return s, nil
}

// ProofTokenResolver resolves a scanned payload into a session.
type ProofTokenResolver struct {
	auth   ProofAuthenticator
	writer *session.Writer
	logger *slog.Logger
}

// NewProofTokenResolver creates a resolver. Pass nil logger for default.
func NewProofTokenResolver(auth ProofAuthenticator, writer *session.Writer, logger *slog.Logger) *ProofTokenResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProofTokenResolver{
		auth:   auth,
		writer: writer,
		logger: logger.With("component", "proof_resolver"),
	}
}

// Resolve logs in with a scanned payload.
func (r *ProofTokenResolver) Resolve(ctx context.Context, payload string) (session.Session, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return session.Session{}, &Failure{Message: EmptyProofMessage, Err: ErrEmptyProof}
	}

	res, err := r.auth.LoginQR(ctx, payload)
	if err != nil {
		if ctx.Err() != nil {
			return session.Session{}, ctx.Err()
		}
		r.logger.Info("auth_event", "event", "qr_login_failed", "reason", reason(err))
		return session.Session{}, &Failure{Message: api.Message(err, QRLoginFailedMessage), Err: err}
	}

	s, err := establish(ctx, r.writer, res)
	if err != nil {
		return session.Session{}, &Failure{Message: QRLoginFailedMessage, Err: err}
	}
	r.logger.Info("auth_event", "event", "qr_login_success", "role", s.Role)
	return s, nil
}

func establish(ctx context.Context, w *session.Writer, res api.LoginResult) (session.Session, error) {
	s := session.Session{
		Token:     res.Token,
		Role:      session.Role(res.Role),
		SubjectID: res.UserID,
	}
	if err := w.Establish(ctx, s); err != nil {
		return session.Session{}, fmt.Errorf("establishing session: %w", err)
	}
	return s, nil
}

// reason is a short log label for a failure; it never includes secrets.
func reason(err error) string {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("status_%d", apiErr.Status)
	case errors.Is(err, api.ErrNetwork):
		return "network"
	case errors.Is(err, api.ErrShape):
		return "bad_response"
	}
	return "other"
}
