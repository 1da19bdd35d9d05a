package token

import (
	"net/http"
	"time"

	usecase "studytube/backend/internal/usecase/auth"
)

// DefaultCookieName is the session cookie name.
const DefaultCookieName = "jwt"

// CookieIssuer delivers session tokens as HTTP-only, same-site lax cookies.
type CookieIssuer struct {
	manager *JWTManager
	name    string
	secure  bool
}

var _ usecase.TokenIssuer = (*CookieIssuer)(nil)

// NewCookieIssuer wraps manager. secure should be true outside development.
func NewCookieIssuer(manager *JWTManager, name string, secure bool) *CookieIssuer {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieIssuer{manager: manager, name: name, secure: secure}
}

// CookieName returns the name of the session cookie.
func (c *CookieIssuer) CookieName() string { return c.name }

// Issue mints a token for userID and wraps it in a session cookie.
func (c *CookieIssuer) Issue(userID string) (*http.Cookie, error) {
	signed, expiresAt, err := c.manager.Generate(userID)
	if err != nil {
		return nil, err
	}
	cookie := c.base(signed)
	cookie.Expires = expiresAt
	cookie.MaxAge = int(c.manager.Expiration() / time.Second)
	return cookie, nil
}

// Revoke returns an empty cookie already expired at the Unix epoch.
func (c *CookieIssuer) Revoke() *http.Cookie {
	cookie := c.base("")
	cookie.Expires = time.Unix(0, 0)
	cookie.MaxAge = -1
	return cookie
}

// Validate resolves the user id carried by a session token.
func (c *CookieIssuer) Validate(token string) (string, error) {
	return c.manager.Validate(token)
}

func (c *CookieIssuer) base(value string) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
