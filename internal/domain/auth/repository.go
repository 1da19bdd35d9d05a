package auth

import "context"

// UserRepository defines persistence operations for auth users.
//
// Implementations enforce email uniqueness themselves and report store
// failures as *apperror.Fault values: FaultDuplicate from Create when the
// email is taken, FaultInvalidID from GetByID when id is malformed. Missing
// records are reported as ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
