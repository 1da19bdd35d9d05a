package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"studytube/backend/internal/config"
	authdomain "studytube/backend/internal/domain/auth"
	"studytube/backend/internal/infrastructure/connect"
	"studytube/backend/internal/infrastructure/memory"
	mongostore "studytube/backend/internal/infrastructure/mongo"
	"studytube/backend/internal/infrastructure/postgres"
)

// store bundles the credential store chosen by the database URL with its
// lifecycle hooks.
type store struct {
	driver  string
	users   authdomain.UserRepository
	ping    func(context.Context) error
	migrate func(context.Context) error
	close   func(context.Context)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store, error) {
	retry := connect.Policy{Attempts: cfg.Database.ConnectRetries, Delay: cfg.Database.ConnectDelay}
	logger = logger.With("component", "store")

	switch cfg.Driver() {
	case config.DriverMongo:
		db, err := mongostore.Connect(ctx, cfg.Database.URL, mongostore.Options{
			Database:               cfg.Database.Name,
			AppName:                cfg.ServiceName,
			MaxPoolSize:            uint64(cfg.Database.MaxPoolSize),
			MinPoolSize:            uint64(cfg.Database.MinPoolSize),
			ServerSelectionTimeout: cfg.Database.ServerSelectionTimeout,
			Retry:                  retry,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "connected to mongodb", "database", cfg.Database.Name)
		return &store{
			driver:  config.DriverMongo,
			users:   mongostore.NewUserRepository(db.Users()),
			ping:    db.Ping,
			migrate: db.EnsureIndexes,
			close: func(ctx context.Context) {
				if err := db.Close(ctx); err != nil {
					logger.WarnContext(ctx, "mongodb disconnect failed", "error", err)
				}
			},
		}, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.URL, postgres.Options{
			AppName:        cfg.ServiceName,
			MaxConns:       int32(cfg.Database.MaxPoolSize),
			MinConns:       int32(cfg.Database.MinPoolSize),
			ConnectTimeout: cfg.Database.ServerSelectionTimeout,
			Retry:          retry,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "connected to postgres")
		return &store{
			driver:  config.DriverPostgres,
			users:   postgres.NewUserRepository(db.Pool),
			ping:    db.Ping,
			migrate: db.Migrate,
			close:   func(context.Context) { db.Close() },
		}, nil

	case config.DriverMemory:
		logger.WarnContext(ctx, "using in-memory credential store; data is lost on exit")
		return &store{
			driver:  config.DriverMemory,
			users:   memory.NewUserRepository(),
			migrate: func(context.Context) error { return nil },
			close:   func(context.Context) {},
		}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").With("url_scheme", cfg.Driver()).Errorf("unsupported database driver")
	}
}
