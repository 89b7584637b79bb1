// ABOUTME: HS256 session tokens for the development backend
// ABOUTME: Subject and role travel as claims; expiry is enforced on every request

package mockapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims is what a verified token asserts.
type Claims struct {
	Subject string
	Role    string
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer with the given secret.
func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, now: time.Now}
}

// Issue creates a token for subject with role, valid for ttl.
func (i *Issuer) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify validates the token and returns its claims.
func (i *Issuer) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Claims{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return Claims{}, fmt.Errorf("%w: role", ErrMissingClaim)
	}
	return Claims{Subject: sub, Role: role}, nil
}
