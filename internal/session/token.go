package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingUserID = errors.New("missing sub in claims")
)

// Token derives the session from a JWT access token. The user id is the
// sub claim. With a secret the HMAC signature is verified; without one the
// token is only decoded and the remote store is trusted to verify it.
type Token struct {
	notifier
	secret []byte
	now    func() time.Time

	mu        sync.RWMutex
	raw       string
	userID    string
	expiresAt time.Time
}

// NewToken returns a signed-out provider.
func NewToken(secret string) *Token {
	t := &Token{now: time.Now}
	if secret != "" {
		t.secret = []byte(secret)
	}
	return t
}

// ParseToken validates raw and returns its subject and expiry. A zero expiry
// means the token does not expire.
func ParseToken(raw string, secret []byte, now func() time.Time) (string, time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	if now == nil {
		now = time.Now
	}

	claims := &jwt.RegisteredClaims{}
	if len(secret) > 0 {
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return secret, nil
		}, jwt.WithTimeFunc(now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return "", time.Time{}, ErrExpiredToken
			}
			return "", time.Time{}, ErrInvalidToken
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return "", time.Time{}, ErrInvalidToken
		}
		if claims.ExpiresAt != nil && !now().Before(claims.ExpiresAt.Time) {
			return "", time.Time{}, ErrExpiredToken
		}
	}

	if claims.Subject == "" {
		return "", time.Time{}, ErrMissingUserID
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return claims.Subject, exp, nil
}

// SetToken signs in with raw. An invalid token signs out and returns the
// reason.
func (t *Token) SetToken(raw string) error {
	userID, exp, err := ParseToken(raw, t.secret, t.now)
	if err != nil {
		t.set("", "", time.Time{})
		return err
	}
	t.set(strings.TrimSpace(raw), userID, exp)
	return nil
}

// Clear signs out.
func (t *Token) Clear() {
	t.set("", "", time.Time{})
}

func (t *Token) set(raw, userID string, exp time.Time) {
	t.mu.Lock()
	changed := t.userID != userID
	t.raw = raw
	t.userID = userID
	t.expiresAt = exp
	t.mu.Unlock()

	if changed {
		t.notify(userID)
	}
}

// CurrentUserID returns the token subject, or "" once the token expires.
func (t *Token) CurrentUserID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.expired() {
		return ""
	}
	return t.userID
}

// AccessToken returns the raw token for authenticating remote requests, or
// "" when signed out or expired.
func (t *Token) AccessToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.expired() {
		return ""
	}
	return t.raw
}

// ExpiresAt returns the token expiry; zero when signed out or unbounded.
func (t *Token) ExpiresAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.expiresAt
}

// expired must be called with t.mu held.
func (t *Token) expired() bool {
	return !t.expiresAt.IsZero() && !t.now().Before(t.expiresAt)
}

var _ Provider = (*Token)(nil)
