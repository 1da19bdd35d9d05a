package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"studytube/backend/internal/apperror"
	"studytube/backend/internal/config"
	"studytube/backend/internal/httpserver"
	"studytube/backend/internal/infrastructure/password"
	"studytube/backend/internal/infrastructure/token"
	"studytube/backend/internal/logging"
	authusecase "studytube/backend/internal/usecase/auth"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "failed to open credential store", err)
		return err
	}
	defer st.close(context.WithoutCancel(ctx))

	if cfg.Database.AutoIndex {
		if err := st.migrate(ctx); err != nil {
			logging.LogError(logger, "failed to prepare credential store", err)
			return err
		}
	}

	server, err := buildServer(cfg, st, logger)
	if err != nil {
		logging.LogError(logger, "failed to build server", err)
		return err
	}

	if cfg.IsDevelopment() {
		logger.Warn("development mode: error responses include stack traces")
	}
	logger.Info("HTTP server listening", "addr", server.Addr(), "store", st.driver)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVER_FAILED").With("addr", server.Addr()).Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "graceful shutdown failed", err)
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	logger.Info("graceful shutdown completed")
	return nil
}

func buildServer(cfg config.Config, st *store, logger *slog.Logger) (*httpserver.Server, error) {
	hasher, err := password.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	manager, err := token.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.JWTIssuer)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	tokens := token.NewCookieIssuer(manager, cfg.Auth.CookieName, !cfg.IsDevelopment())

	authService, err := authusecase.NewService(st.users, hasher, tokens, logger)
	if err != nil {
		return nil, err
	}

	return httpserver.NewServer(cfg, httpserver.Dependencies{
		Auth:       authService,
		Sessions:   tokens,
		Normalizer: apperror.NewNormalizer(apperror.ParseMode(cfg.Env), logger),
		Metrics:    httpserver.NewMetrics(),
		Logger:     logger,
		Health:     st.ping,
	}), nil
}
