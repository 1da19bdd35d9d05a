package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func baseOptions(env map[string]string) LoadOptions {
	return LoadOptions{
		EnvFile:   filepath.Join(os.TempDir(), "studytube-missing.env"),
		LookupEnv: mapEnv(env),
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(baseOptions(map[string]string{
		"DATABASE_URL": "mongodb://localhost:27017",
		"JWT_SECRET":   "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "studytube-api", cfg.ServiceName)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, DriverMongo, cfg.Driver())
	assert.Equal(t, "studytube", cfg.Database.Name)
	assert.Equal(t, 20, cfg.Database.MaxPoolSize)
	assert.Equal(t, 5*time.Second, cfg.Database.ServerSelectionTimeout)
	assert.Equal(t, 5, cfg.Database.ConnectRetries)
	assert.Equal(t, 2*time.Second, cfg.Database.ConnectDelay)
	assert.True(t, cfg.Database.AutoIndex)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "jwt", cfg.Auth.CookieName)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := Load(baseOptions(map[string]string{
		"APP_ENV":              "Development",
		"SERVICE_NAME":         "auth-svc",
		"PORT":                 "9000",
		"DATABASE_URL":         "postgresql://u:p@db:5432/app",
		"JWT_SECRET":           "secret",
		"JWT_EXPIRY":           "24h",
		"CORS_ALLOWED_ORIGINS": "http://a.test, http://b.test",
		"DB_MAX_POOL_SIZE":     "5",
		"DB_AUTO_INDEX":        "false",
		"BCRYPT_COST":          "10",
		"LOG_LEVEL":            "WARN",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "auth-svc", cfg.ServiceName)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.Database.URL)
	assert.Equal(t, DriverPostgres, cfg.Driver())
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 5, cfg.Database.MaxPoolSize)
	assert.False(t, cfg.Database.AutoIndex)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadHTTPPortWinsOverPort(t *testing.T) {
	cfg, err := Load(baseOptions(map[string]string{
		"HTTP_PORT":    "7000",
		"PORT":         "9000",
		"DATABASE_URL": "memory://",
		"JWT_SECRET":   "secret",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr())
	assert.Equal(t, DriverMemory, cfg.Driver())
}

func TestLoadBuildsPostgresURLFromPGVars(t *testing.T) {
	cfg, err := Load(baseOptions(map[string]string{
		"PGHOST":     "db",
		"PGUSER":     "app",
		"PGPASSWORD": "pw",
		"PGDATABASE": "auth",
		"PGSSLMODE":  "disable",
		"JWT_SECRET": "secret",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db:5432/auth?sslmode=disable", cfg.Database.URL)
}

func TestLoadYAMLFileThenEnvThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: development
http:
  port: "8100"
database:
  url: mongodb://file:27017
  name: fromfile
auth:
  jwt_secret: file-secret
`), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "8300"}))

	opts := baseOptions(map[string]string{"DATABASE_NAME": "fromenv"})
	opts.ConfigFile = path
	opts.Flags = fs

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":8300", cfg.Addr())
	assert.Equal(t, "mongodb://file:27017", cfg.Database.URL)
	assert.Equal(t, "fromenv", cfg.Database.Name)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STUDYTUBE_TEST_SECRET=from-file\nSTUDYTUBE_TEST_ONLY_FILE=yes\n"), 0o600))

	t.Setenv("STUDYTUBE_TEST_SECRET", "from-env")
	t.Setenv("STUDYTUBE_TEST_ONLY_FILE", "")
	require.NoError(t, os.Unsetenv("STUDYTUBE_TEST_ONLY_FILE"))
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load(LoadOptions{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-env", os.Getenv("STUDYTUBE_TEST_SECRET"))
	assert.Equal(t, "yes", os.Getenv("STUDYTUBE_TEST_ONLY_FILE"))
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"JWT_SECRET": "secret"},
			want: "database configuration missing",
		},
		{
			name: "missing secret",
			env:  map[string]string{"DATABASE_URL": "memory://"},
			want: "JWT_SECRET is required",
		},
		{
			name: "unsupported scheme",
			env:  map[string]string{"DATABASE_URL": "mysql://db", "JWT_SECRET": "secret"},
			want: "unsupported database URL scheme",
		},
		{
			name: "unknown environment",
			env:  map[string]string{"DATABASE_URL": "memory://", "JWT_SECRET": "secret", "APP_ENV": "staging"},
			want: "env",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(baseOptions(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
