package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapRevocations map[string]time.Duration

func (m mapRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	m[tokenID] = ttl
	return nil
}

func (m mapRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, ok := m[tokenID]
	return ok, nil
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestVerifier(revs Revocations) (*Verifier, *time.Time) {
	now := epoch
	v := NewVerifier([]byte("secret"), revs)
	v.now = func() time.Time { return now }
	return v, &now
}

func TestIssueAndVerify(t *testing.T) {
	v, _ := newTestVerifier(nil)

	token, err := v.Issue("alice", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.ExpiresAt.Equal(epoch.Add(time.Hour)))
}

func TestVerify_Rejects(t *testing.T) {
	v, now := newTestVerifier(nil)
	token, err := v.Issue("alice", time.Hour)
	require.NoError(t, err)

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewVerifier([]byte("other"), nil)
		other.now = v.now
		_, err := other.Verify(t.Context(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		*now = epoch.Add(2 * time.Hour)
		defer func() { *now = epoch }()
		_, err := v.Verify(t.Context(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := v.Verify(t.Context(), "a.b.c")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoSubject", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(t.Context(), raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "alice"}).
			SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(t.Context(), raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRevoke(t *testing.T) {
	revs := mapRevocations{}
	v, now := newTestVerifier(revs)

	token, err := v.Issue("alice", time.Hour)
	require.NoError(t, err)

	*now = epoch.Add(15 * time.Minute)
	require.NoError(t, v.Revoke(t.Context(), token))
	assert.Equal(t, 45*time.Minute, revs[TokenID(token)])

	_, err = v.Verify(t.Context(), token)
	assert.ErrorIs(t, err, ErrRevoked)

	t.Run("InvalidTokenNotRecorded", func(t *testing.T) {
		assert.ErrorIs(t, v.Revoke(t.Context(), "nope"), ErrInvalidToken)
		assert.Len(t, revs, 1)
	})

	t.Run("NilRevocations", func(t *testing.T) {
		v, _ := newTestVerifier(nil)
		token, err := v.Issue("bob", time.Hour)
		require.NoError(t, err)
		assert.NoError(t, v.Revoke(t.Context(), token))
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "", err: ErrMissingToken},
		{header: "Basic abc", err: ErrMissingToken},
		{header: "Bearer", err: ErrMissingToken},
		{header: "Bearer   ", err: ErrMissingToken},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestTokenID(t *testing.T) {
	assert.Len(t, TokenID("x"), 64)
	assert.Equal(t, TokenID("x"), TokenID("x"))
	assert.NotEqual(t, TokenID("x"), TokenID("y"))
}
