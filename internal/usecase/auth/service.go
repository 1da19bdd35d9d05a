package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"studytube/backend/internal/apperror"
	domain "studytube/backend/internal/domain/auth"
)

const (
	msgSignUpRequired     = "Name, email and password are required"
	msgSignInRequired     = "Email and password are required"
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgUserNotFound       = "User not found"
)

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users     domain.UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	logger    *slog.Logger
	nowFunc   func() time.Time
	dummyHash string
}

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	User   domain.PublicUser
	Cookie *http.Cookie
}

// SignUpInput carries the raw sign-up form.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// NewService constructs an auth service. It hashes a random password once so
// sign-in can spend the same work on unknown emails as on real ones.
func NewService(users domain.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("token issuer is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, oops.Code("AUTH_DUMMY_HASH_FAILED").Wrap(err)
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger.With("component", "auth"),
		nowFunc:   time.Now,
		dummyHash: dummy,
	}, nil
}

// SignUp registers a new user and opens a session for it.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, apperror.Validation(msgSignUpRequired)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict(msgUserExists)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, oops.Code("AUTH_SIGN_UP_FAILED").With("operation", "lookup email").Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGN_UP_FAILED").With("operation", "hash password").Wrap(err)
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		// The store's unique index is authoritative; the lookup above can race.
		var fault *apperror.Fault
		if errors.As(err, &fault) && fault.Kind == apperror.FaultDuplicate && fault.Field == "email" {
			return nil, apperror.Conflict(msgUserExists)
		}
		return nil, oops.Code("AUTH_SIGN_UP_FAILED").With("operation", "create user").Wrap(err)
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID)
	return session, nil
}

// SignIn checks credentials and opens a session. Unknown emails and wrong
// passwords produce the same error.
func (s *Service) SignIn(ctx context.Context, creds domain.Credentials) (*Session, error) {
	email := domain.NormalizeEmail(creds.Email)
	if email == "" || strings.TrimSpace(creds.Password) == "" {
		return nil, apperror.Validation(msgSignInRequired)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, oops.Code("AUTH_SIGN_IN_FAILED").With("operation", "lookup email").Wrap(err)
		}
		_, _ = s.hasher.Verify(creds.Password, s.dummyHash)
		s.logger.DebugContext(ctx, "sign in rejected", "reason", "unknown email")
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	ok, err := s.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_SIGN_IN_FAILED").With("operation", "verify password").With("user_id", user.ID).Wrap(err)
	}
	if !ok {
		s.logger.DebugContext(ctx, "sign in rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID)
	return session, nil
}

// SignOut returns the cookie that clears the session. It cannot fail.
func (s *Service) SignOut() *http.Cookie {
	return s.tokens.Revoke()
}

// GetCurrentUser loads the user an upstream authentication check resolved.
func (s *Service) GetCurrentUser(ctx context.Context, id string) (*domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.NotFound(msgUserNotFound)
		}
		return nil, oops.Code("AUTH_CURRENT_USER_FAILED").With("user_id", id).Wrap(err)
	}
	public := user.Public()
	return &public, nil
}

func (s *Service) openSession(user *domain.User) (*Session, error) {
	cookie, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return &Session{User: user.Public(), Cookie: cookie}, nil
}
