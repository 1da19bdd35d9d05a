package token

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("test-secret", ttl, "studytube")
	require.NoError(t, err)
	return m
}

func TestNewJWTManagerValidation(t *testing.T) {
	_, err := NewJWTManager("", time.Hour, "studytube")
	assert.ErrorIs(t, err, ErrSecretRequired)

	_, err = NewJWTManager("secret", 0, "studytube")
	assert.Error(t, err)
}

func TestGenerateValidate(t *testing.T) {
	m := newManager(t, time.Hour)

	signed, expiresAt, err := m.Generate("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	id, err := m.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestValidateRejects(t *testing.T) {
	m := newManager(t, time.Hour)
	signed, _, err := m.Generate("user-1")
	require.NoError(t, err)

	other, err := NewJWTManager("other-secret", time.Hour, "studytube")
	require.NoError(t, err)

	expired := newManager(t, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Generate("user-1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		manager *JWTManager
		token   string
	}{
		{"garbage", m, "not-a-token"},
		{"tampered", m, signed + "x"},
		{"wrong secret", other, signed},
		{"expired", m, old},
		{"unsigned", m, none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Validate(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTokenInvalid))
		})
	}
}

func TestCookieIssuerIssue(t *testing.T) {
	issuer := NewCookieIssuer(newManager(t, 30*24*time.Hour), "", true)

	cookie, err := issuer.Issue("user-1")
	require.NoError(t, err)

	assert.Equal(t, "jwt", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)
	assert.True(t, cookie.Expires.After(time.Now()))

	id, err := issuer.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestCookieIssuerRevoke(t *testing.T) {
	for _, secure := range []bool{true, false} {
		issuer := NewCookieIssuer(newManager(t, time.Hour), "jwt", secure)

		cookie := issuer.Revoke()
		assert.Equal(t, "jwt", cookie.Name)
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, secure, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.True(t, cookie.Expires.Before(time.Now()))
		assert.Equal(t, -1, cookie.MaxAge)
		assert.Contains(t, cookie.String(), "Max-Age=0")
	}
}
