//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"studytube/backend/internal/apperror"
	domain "studytube/backend/internal/domain/auth"
	"studytube/backend/internal/infrastructure/connect"
)

var testDB *Database

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("studytube_test"),
		tcpostgres.WithUsername("studytube"),
		tcpostgres.WithPassword("studytube"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		panic(err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		panic(err)
	}

	testDB, err = New(ctx, connStr, Options{AppName: "studytube-test", Retry: connect.Policy{Attempts: 3, Delay: time.Second}}, nil)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		panic(err)
	}
	if err := testDB.Migrate(ctx); err != nil {
		testDB.Close()
		_ = container.Terminate(ctx)
		cancel()
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(context.Background())
	cancel()
	os.Exit(code)
}

func TestIntegration_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB.Pool)

	now := time.Now().UTC()
	user := &domain.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEmpty(t, user.ID)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.False(t, got.IsAdmin)

	byEmail, err := repo.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	dup := &domain.User{Name: "Other", Email: "ann@x.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
	err = repo.Create(ctx, dup)
	var fault *apperror.Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, apperror.FaultDuplicate, fault.Kind)
	assert.Equal(t, "email", fault.Field)
	assert.Equal(t, "ann@x.com", fault.Value)
}

func TestIntegration_MigrateIsIdempotent(t *testing.T) {
	require.NoError(t, testDB.Migrate(context.Background()))
}
