// Package auth verifies the HS256 bearer tokens that identify dashboard users.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrRevoked      = errors.New("auth: token revoked")
)

// Revocations remembers tokens that were logged out before they expired.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Claims are the verified facts about a token.
type Claims struct {
	Username  string
	ExpiresAt time.Time
}

// Verifier issues and checks tokens signed with a shared secret.
type Verifier struct {
	secret      []byte
	revocations Revocations
	now         func() time.Time
}

// NewVerifier returns a verifier for secret. revocations may be nil.
func NewVerifier(secret []byte, revocations Revocations) *Verifier {
	return &Verifier{secret: secret, revocations: revocations, now: time.Now}
}

// Issue signs a token for username valid for ttl.
func (v *Verifier) Issue(username string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature, expiry and revocation status of token.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, TokenID(token))
		if err != nil {
			return Claims{}, fmt.Errorf("auth: check revocation: %w", err)
		}
		if revoked {
			return Claims{}, ErrRevoked
		}
	}

	out := Claims{Username: claims.Subject}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Revoke records token as logged out until it would have expired anyway.
func (v *Verifier) Revoke(ctx context.Context, token string) error {
	c, err := v.Verify(ctx, token)
	if err != nil {
		return err
	}
	if v.revocations == nil {
		return nil
	}
	ttl := time.Hour
	if !c.ExpiresAt.IsZero() {
		ttl = c.ExpiresAt.Sub(v.now())
	}
	if ttl <= 0 {
		return nil
	}
	return v.revocations.Revoke(ctx, TokenID(token), ttl)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}

// TokenID is the key a token is revoked under. Raw tokens are never stored.
func TokenID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
