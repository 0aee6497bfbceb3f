package builder

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotLoggedIn is returned when a session has no usable token.
var ErrNotLoggedIn = errors.New("builder: not logged in")

// Session carries the caller's bearer token. It is created empty, filled by
// Login and emptied by Logout, and handed explicitly to whatever needs it.
type Session struct {
	token     string
	username  string
	expiresAt time.Time
	now       func() time.Time
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{now: time.Now}
}

// Login stores token after reading its subject and expiry. The signature is
// not checked here; the backend verifies it on every request.
func (s *Session) Login(token string) error {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("builder: parse session token: %w", err)
	}
	if claims.Subject == "" {
		return fmt.Errorf("builder: session token has no subject: %w", jwt.ErrTokenInvalidClaims)
	}
	s.token = token
	s.username = claims.Subject
	s.expiresAt = time.Time{}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	return nil
}

// Logout forgets the token.
func (s *Session) Logout() {
	s.token = ""
	s.username = ""
	s.expiresAt = time.Time{}
}

// Username returns the subject of the current token.
func (s *Session) Username() string { return s.username }

// Token returns the bearer token, or ErrNotLoggedIn if there is none or it has
// expired.
func (s *Session) Token() (string, error) {
	if s.token == "" {
		return "", ErrNotLoggedIn
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", fmt.Errorf("%w: token expired", ErrNotLoggedIn)
	}
	return s.token, nil
}

// LoggedIn reports whether Token would succeed.
func (s *Session) LoggedIn() bool {
	_, err := s.Token()
	return err == nil
}
