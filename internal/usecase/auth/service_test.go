package auth_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"studytube/backend/internal/apperror"
	domain "studytube/backend/internal/domain/auth"
	"studytube/backend/internal/infrastructure/memory"
	"studytube/backend/internal/infrastructure/password"
	"studytube/backend/internal/infrastructure/token"
	"studytube/backend/internal/usecase/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	svc    *auth.Service
	users  *memory.UserRepository
	tokens *token.CookieIssuer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	users := memory.NewUserRepository()
	return newFixtureWithRepo(t, users, users)
}

func newFixtureWithRepo(t *testing.T, repo domain.UserRepository, users *memory.UserRepository) fixture {
	t.Helper()
	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	manager, err := token.NewJWTManager("test-secret", time.Hour, "studytube")
	require.NoError(t, err)
	tokens := token.NewCookieIssuer(manager, "jwt", false)

	svc, err := auth.NewService(repo, hasher, tokens, nil)
	require.NoError(t, err)
	return fixture{svc: svc, users: users, tokens: tokens}
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	opErr, ok := apperror.Classify(err)
	require.True(t, ok, "expected operational error, got %v", err)
	assert.Equal(t, status, opErr.StatusCode)
	assert.Equal(t, message, opErr.Message)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	manager, err := token.NewJWTManager("s", time.Hour, "")
	require.NoError(t, err)
	tokens := token.NewCookieIssuer(manager, "", false)
	users := memory.NewUserRepository()

	_, err = auth.NewService(nil, hasher, tokens, nil)
	assert.Error(t, err)
	_, err = auth.NewService(users, nil, tokens, nil)
	assert.Error(t, err)
	_, err = auth.NewService(users, hasher, nil, nil)
	assert.Error(t, err)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.svc.SignUp(ctx, auth.SignUpInput{Name: " Ann ", Email: " Ann@X.com ", Password: "secret1"})
	require.NoError(t, err)

	assert.NotEmpty(t, session.User.ID)
	assert.Equal(t, "Ann", session.User.Name)
	assert.Equal(t, "ann@x.com", session.User.Email)
	assert.False(t, session.User.IsAdmin)

	require.NotNil(t, session.Cookie)
	assert.Equal(t, "jwt", session.Cookie.Name)
	assert.True(t, session.Cookie.HttpOnly)
	id, err := f.tokens.Validate(session.Cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, id)

	stored, err := f.users.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
}

func TestSignUpMissingFields(t *testing.T) {
	f := newFixture(t)
	inputs := []auth.SignUpInput{
		{Email: "ann@x.com", Password: "secret1"},
		{Name: "Ann", Email: "   ", Password: "secret1"},
		{Name: "Ann", Email: "ann@x.com", Password: "   "},
		{},
	}
	for _, in := range inputs {
		_, err := f.svc.SignUp(context.Background(), in)
		requireAppError(t, err, http.StatusBadRequest, "Name, email and password are required")
	}
	assert.Equal(t, 0, f.users.Len())
}

func TestSignUpDuplicateEmailDiffersOnlyInCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SignUp(ctx, auth.SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, auth.SignUpInput{Name: "Ann", Email: "  ANN@x.com", Password: "secret1"})
	requireAppError(t, err, http.StatusConflict, "User already exists")
}

func TestSignUpMalformedEmailIsValidationFault(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SignUp(context.Background(), auth.SignUpInput{Name: "Ann", Email: "ann", Password: "secret1"})
	requireAppError(t, err, http.StatusBadRequest, "Invalid input data: email: must be a valid email address.")
}

func TestSignUpPasswordTooLong(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SignUp(context.Background(), auth.SignUpInput{Name: "Ann", Email: "ann@x.com", Password: strings.Repeat("p", 73)})
	require.Error(t, err)
	assert.ErrorIs(t, err, password.ErrPasswordTooLong)
	opErr, ok := apperror.Classify(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, opErr.StatusCode)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func TestSignUpStoreDuplicateWinsRace(t *testing.T) {
	repo := &mockRepo{}
	repo.On("GetByEmail", mock.Anything, "ann@x.com").Return(nil, domain.ErrUserNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).
		Return(apperror.Duplicate("email", "ann@x.com", errors.New("E11000")))

	f := newFixtureWithRepo(t, repo, nil)
	_, err := f.svc.SignUp(context.Background(), auth.SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	requireAppError(t, err, http.StatusConflict, "User already exists")
	repo.AssertExpectations(t)
}

func TestSignUpStoreFailureIsNotOperational(t *testing.T) {
	repo := &mockRepo{}
	repo.On("GetByEmail", mock.Anything, "ann@x.com").Return(nil, errors.New("connection refused"))

	f := newFixtureWithRepo(t, repo, nil)
	_, err := f.svc.SignUp(context.Background(), auth.SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.Error(t, err)
	_, operational := apperror.Classify(err)
	assert.False(t, operational)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignUpThenSignInReturnsSameID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	up, err := f.svc.SignUp(ctx, auth.SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	in, err := f.svc.SignIn(ctx, domain.Credentials{Email: " ANN@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, up.User, in.User)
	require.NotNil(t, in.Cookie)
}

func TestSignInEnumerationResistance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.SignUp(ctx, auth.SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := f.svc.SignIn(ctx, domain.Credentials{Email: "ann@x.com", Password: "nope"})
	_, unknownEmail := f.svc.SignIn(ctx, domain.Credentials{Email: "bob@x.com", Password: "secret1"})

	requireAppError(t, wrongPassword, http.StatusUnauthorized, "Invalid email or password")
	requireAppError(t, unknownEmail, http.StatusUnauthorized, "Invalid email or password")

	normalizer := apperror.NewNormalizer(apperror.Production, nil)
	assert.Equal(t, normalizer.Normalize(wrongPassword), normalizer.Normalize(unknownEmail))
}

func TestSignInMissingFields(t *testing.T) {
	f := newFixture(t)
	for _, creds := range []domain.Credentials{{Password: "x"}, {Email: "ann@x.com"}, {Email: " ", Password: " "}} {
		_, err := f.svc.SignIn(context.Background(), creds)
		requireAppError(t, err, http.StatusBadRequest, "Email and password are required")
	}
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)

	cookie := f.svc.SignOut()
	assert.Equal(t, "jwt", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.True(t, cookie.Expires.Before(time.Now()))
}

func TestGetCurrentUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	up, err := f.svc.SignUp(ctx, auth.SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	got, err := f.svc.GetCurrentUser(ctx, up.User.ID)
	require.NoError(t, err)
	assert.Equal(t, up.User, *got)

	_, err = f.svc.GetCurrentUser(ctx, "0b6b8d4e-8a55-4a6b-9b8e-3f6f0e1f2a3b")
	requireAppError(t, err, http.StatusNotFound, "User not found")

	_, err = f.svc.GetCurrentUser(ctx, "bogus")
	requireAppError(t, err, http.StatusBadRequest, "Invalid value for id: bogus!")
}
