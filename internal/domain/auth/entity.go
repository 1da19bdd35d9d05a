package auth

import (
	"errors"
	"strings"
	"time"
)

// ErrUserNotFound indicates missing user.
var ErrUserNotFound = errors.New("user not found")

// User models the account persisted by the credential store.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the subset of a User that may leave the service.
type PublicUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Public returns the client-safe view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}
}

// Credentials captures raw credential input for sign-in.
type Credentials struct {
	Email    string
	Password string
}

// NormalizeEmail trims and lowercases an email. Every read and write path uses it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
