package postgres

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"studytube/backend/internal/apperror"
	domain "studytube/backend/internal/domain/auth"
)

// DBTX is the subset of pgx used by repositories. *pgxpool.Pool, pgx.Tx and
// pgxmock pools all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id::text, name, email, password_hash, is_admin, created_at, updated_at`

// UserRepository persists users in PostgreSQL.
type UserRepository struct {
	db DBTX
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a repository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user record and fills in the generated id.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	const query = `
INSERT INTO users (name, email, password_hash, is_admin, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text
`
	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if fault := classify(err, user.Email); fault != nil {
			return fault
		}
		return oops.Code("USER_CREATE_FAILED").With("email", user.Email).Wrap(err)
	}
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, oops.Code("USER_QUERY_FAILED").With("email", email).Wrap(err)
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperror.InvalidID("id", id, err)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		if fault := classify(err, id); fault != nil {
			return nil, fault
		}
		return nil, oops.Code("USER_QUERY_FAILED").With("user_id", id).Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

var duplicateDetail = regexp.MustCompile(`Key \((.+?)\)=\((.*)\) already exists`)

// classify maps the Postgres errors the user table can raise to store faults.
// value is the input most likely responsible, used when the server gives no detail.
func classify(err error, value string) *apperror.Fault {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		field := constraintField(pgErr.ConstraintName)
		if m := duplicateDetail.FindStringSubmatch(pgErr.Detail); m != nil {
			field, value = m[1], m[2]
		}
		return apperror.Duplicate(field, value, err)
	case pgerrcode.InvalidTextRepresentation:
		return apperror.InvalidID("id", value, err)
	case pgerrcode.NotNullViolation:
		return apperror.InvalidWithCause(err, apperror.FieldError{Field: pgErr.ColumnName, Message: "is required"})
	case pgerrcode.CheckViolation:
		return apperror.InvalidWithCause(err, apperror.FieldError{
			Field:   constraintField(pgErr.ConstraintName),
			Message: "violates constraint " + pgErr.ConstraintName,
		})
	default:
		return nil
	}
}

// constraintField turns "users_email_key" or "users_email_lower_check" into "email".
func constraintField(constraint string) string {
	name := strings.TrimPrefix(constraint, "users_")
	for _, suffix := range []string{"_lower_check", "_check", "_key", "_idx"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if name == "" {
		return constraint
	}
	return name
}
