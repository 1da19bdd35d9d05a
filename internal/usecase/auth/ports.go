package auth

import "net/http"

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify compares in constant time. A mismatch is (false, nil); an error
	// means the digest itself could not be used.
	Verify(plaintext, digest string) (bool, error)
}

// TokenIssuer mints session tokens and delivers them as cookies.
type TokenIssuer interface {
	Issue(userID string) (*http.Cookie, error)
	// Revoke returns a cookie that overwrites the session with an expired empty value.
	Revoke() *http.Cookie
}
