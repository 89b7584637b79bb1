// ABOUTME: Client-side inspection of the session token's expiry claim
// ABOUTME: The signature is not checked here; the remote service remains the authority

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when the token is not a JWT or carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// ExpiresAt reads the exp claim of a JWT without verifying it.
func ExpiresAt(token string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoExpiry, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoExpiry, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Expired reports whether the token's exp claim is at or before now.
// Tokens without a readable expiry are never considered expired here.
func Expired(token string, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return false
	}
	return !now.Before(exp)
}
