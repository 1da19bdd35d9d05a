package config

import (
	"errors"
	"io/fs"
	"net"
	neturl "net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers selected by the database URL scheme.
const (
	DriverMongo    = "mongodb"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config centralises runtime configuration.
type Config struct {
	Env         string         `koanf:"env"`
	ServiceName string         `koanf:"service_name"`
	HTTP        HTTPConfig     `koanf:"http"`
	Database    DatabaseConfig `koanf:"database"`
	Auth        AuthConfig     `koanf:"auth"`
	Log         LogConfig      `koanf:"log"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Port            string        `koanf:"port"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the credential store.
type DatabaseConfig struct {
	URL                    string        `koanf:"url"`
	Name                   string        `koanf:"name"`
	MaxPoolSize            int           `koanf:"max_pool_size"`
	MinPoolSize            int           `koanf:"min_pool_size"`
	ServerSelectionTimeout time.Duration `koanf:"server_selection_timeout"`
	ConnectRetries         int           `koanf:"connect_retries"`
	ConnectDelay           time.Duration `koanf:"connect_delay"`
	AutoIndex              bool          `koanf:"auto_index"`
}

// AuthConfig configures session tokens and password hashing.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	JWTIssuer  string        `koanf:"jwt_issuer"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	CookieName string        `koanf:"cookie_name"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// LogConfig configures the structured logger. Empty values follow Env.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// LoadOptions controls where Load reads from. Zero value reads .env and the
// process environment only.
type LoadOptions struct {
	// ConfigFile is an optional YAML file applied over the defaults.
	ConfigFile string
	// EnvFile defaults to ".env". A missing file is ignored.
	EnvFile string
	// Flags are applied last; only flags the user set override other sources.
	Flags *pflag.FlagSet
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Addr returns the listen address.
func (c Config) Addr() string {
	if strings.Contains(c.HTTP.Port, ":") {
		return c.HTTP.Port
	}
	return ":" + c.HTTP.Port
}

// Driver returns the store driver implied by the database URL scheme.
func (c Config) Driver() string {
	return driverFor(c.Database.URL)
}

func defaults() map[string]any {
	return map[string]any{
		"env":                               EnvProduction,
		"service_name":                      "studytube-api",
		"http.port":                         "8000",
		"http.allowed_origins":              []string{"*"},
		"http.read_timeout":                 "15s",
		"http.write_timeout":                "15s",
		"http.idle_timeout":                 "60s",
		"http.shutdown_timeout":             "10s",
		"database.name":                     "studytube",
		"database.max_pool_size":            20,
		"database.min_pool_size":            0,
		"database.server_selection_timeout": "5s",
		"database.connect_retries":          5,
		"database.connect_delay":            "2s",
		"database.auto_index":               true,
		"auth.jwt_issuer":                   "studytube",
		"auth.token_ttl":                    "720h",
		"auth.cookie_name":                  "jwt",
		"auth.bcrypt_cost":                  12,
	}
}

// envKeys maps configuration keys to the environment variables that set them,
// in order of precedence.
var envKeys = map[string][]string{
	"env":                               {"APP_ENV", "NODE_ENV", "ENV"},
	"service_name":                      {"SERVICE_NAME"},
	"http.port":                         {"HTTP_PORT", "PORT"},
	"http.read_timeout":                 {"HTTP_READ_TIMEOUT"},
	"http.write_timeout":                {"HTTP_WRITE_TIMEOUT"},
	"http.idle_timeout":                 {"HTTP_IDLE_TIMEOUT"},
	"http.shutdown_timeout":             {"HTTP_SHUTDOWN_TIMEOUT"},
	"database.name":                     {"DATABASE_NAME", "MONGO_DB_NAME"},
	"database.max_pool_size":            {"DB_MAX_POOL_SIZE"},
	"database.min_pool_size":            {"DB_MIN_POOL_SIZE"},
	"database.server_selection_timeout": {"DB_SERVER_SELECTION_TIMEOUT"},
	"database.connect_retries":          {"DB_CONNECT_RETRIES"},
	"database.connect_delay":            {"DB_CONNECT_DELAY"},
	"database.auto_index":               {"DB_AUTO_INDEX"},
	"auth.jwt_secret":                   {"JWT_SECRET"},
	"auth.jwt_issuer":                   {"JWT_ISSUER"},
	"auth.token_ttl":                    {"JWT_EXPIRY", "JWT_EXPIRES_IN"},
	"auth.cookie_name":                  {"AUTH_COOKIE_NAME"},
	"auth.bcrypt_cost":                  {"BCRYPT_COST"},
	"log.format":                        {"LOG_FORMAT"},
	"log.level":                         {"LOG_LEVEL"},
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"env":          "env",
	"port":         "http.port",
	"database-url": "database.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env", "", "runtime environment (development|production)")
	fs.String("port", "", "HTTP listen port")
	fs.String("database-url", "", "credential store URL (mongodb://, postgres://, memory://)")
	fs.String("log-format", "", "log format (json|text)")
	fs.String("log-level", "", "log level (debug|info|warn|error)")
}

// Load layers defaults, an optional YAML file, .env, the environment and
// flags, in that order, then validates the result.
func Load(opts LoadOptions) (Config, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, oops.Code("CONFIG_INVALID").With("file", envFile).Wrap(err)
	}

	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if opts.ConfigFile != "" {
		if err := k.Load(file.Provider(opts.ConfigFile), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("file", opts.ConfigFile).Wrap(err)
		}
	}

	env := envReader(lookup)
	for key, names := range envKeys {
		if value := env.first(names...); value != "" {
			if err := k.Set(key, value); err != nil {
				return Config{}, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
			}
		}
	}
	if origins := env.first("CORS_ALLOWED_ORIGINS", "CLIENT_URL"); origins != "" {
		_ = k.Set("http.allowed_origins", splitCSV(origins))
	}
	if url := resolveDatabaseURL(env); url != "" {
		_ = k.Set("database.url", url)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "dev" {
		cfg.Env = EnvDevelopment
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Database.URL = coerceDatabaseURL(cfg.Database.URL)

	if err := cfg.Validate(); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c Config) Validate() error {
	return validation.Errors{
		"env":          validation.Validate(c.Env, validation.Required, validation.In(EnvDevelopment, EnvProduction)),
		"service_name": validation.Validate(c.ServiceName, validation.Required),
		"http":         c.HTTP.Validate(),
		"database":     c.Database.Validate(),
		"auth":         c.Auth.Validate(),
		"log":          c.Log.Validate(),
	}.Filter()
}

// Validate checks the HTTP settings.
func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.AllowedOrigins, validation.Required),
		validation.Field(&c.ShutdownTimeout, validation.Required),
	)
}

// Validate checks the store settings.
func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL,
			validation.Required.Error("database configuration missing: provide DATABASE_URL, MONGODB_URI or PG* env vars"),
			validation.By(supportedScheme),
		),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.MaxPoolSize, validation.Min(1)),
		validation.Field(&c.MinPoolSize, validation.Min(0), validation.Max(c.MaxPoolSize)),
		validation.Field(&c.ConnectRetries, validation.Min(1)),
	)
}

// Validate checks the session and hashing settings.
func (c AuthConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.JWTSecret, validation.Required.Error("JWT_SECRET is required")),
		validation.Field(&c.TokenTTL, validation.Required),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.BcryptCost, validation.Min(4), validation.Max(31)),
	)
}

// Validate checks the logger settings.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Format, validation.In("json", "text")),
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
	)
}

func supportedScheme(value any) error {
	url, _ := value.(string)
	if url == "" {
		return nil
	}
	if driverFor(url) == "" {
		return errors.New("unsupported database URL scheme")
	}
	return nil
}

func driverFor(url string) string {
	switch {
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return DriverMongo
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "memory://"):
		return DriverMemory
	default:
		return ""
	}
}

type envReader func(string) (string, bool)

func (e envReader) get(key string) string {
	if val, ok := e(key); ok {
		return strings.TrimSpace(val)
	}
	return ""
}

func (e envReader) first(keys ...string) string {
	for _, key := range keys {
		if v := e.get(key); v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}

func resolveDatabaseURL(env envReader) string {
	if url := env.first(
		"DATABASE_URL",
		"MONGODB_URI",
		"MONGO_URI",
		"MONGO_URL",
		"POSTGRES_URL",
		"PGURL",
	); url != "" {
		return url
	}

	if path := env.get("DATABASE_URL_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if url := strings.TrimSpace(string(data)); url != "" {
				return url
			}
		}
	}

	host := env.first("PGHOST", "POSTGRES_HOST", "DATABASE_HOST")
	user := env.first("PGUSER", "POSTGRES_USER", "DATABASE_USER")
	if host == "" || user == "" {
		return ""
	}
	password := env.first("PGPASSWORD", "POSTGRES_PASSWORD", "DATABASE_PASSWORD")
	database := firstNonEmpty(env.first("PGDATABASE", "POSTGRES_DB"), user)
	port := firstNonEmpty(env.first("PGPORT", "POSTGRES_PORT", "DATABASE_PORT"), "5432")
	sslMode := firstNonEmpty(env.first("PGSSLMODE", "POSTGRES_SSL_MODE"), "require")

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
		User:   neturl.User(user),
	}
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", sslMode)
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(raw, "postgresql://")
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
