package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jacksonlee411/nullguard/internal/config"
	"github.com/jacksonlee411/nullguard/internal/declare"
	"github.com/jacksonlee411/nullguard/internal/server"
	"github.com/jacksonlee411/nullguard/pkg/authz"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

func run(cfg config.Settings, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := authz.NewAuthorizer(cfg.AuthzModelPath, cfg.AuthzPolicyPath, cfg.Authorization)
	if err != nil {
		return fmt.Errorf("authz: %w", err)
	}

	opts := server.HandlerOptions{
		Authorizer:      a,
		Logger:          logger,
		DefaultTenantID: cfg.TenantID,
		DefaultRole:     cfg.DefaultRole,
		GatewaySecret:   cfg.GatewaySecret,
	}

	var catalog *declare.Catalog
	if cfg.Postgres() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		store := declare.NewPGStore(pool)
		opts.Store = store
		opts.Catalogs = server.NewStoreCatalog(store)
		logger.Info("declarations from postgres", zap.String("tenant_id", cfg.TenantID))
	} else {
		d, err := declare.LoadDeclarations(cfg.DeclarationsPath)
		if err != nil {
			return err
		}
		catalog, err = declare.NewCatalog(d)
		if err != nil {
			return err
		}
		opts.Catalogs = server.NewStaticCatalog(catalog)
		logger.Info("declarations loaded",
			zap.String("path", cfg.DeclarationsPath),
			zap.Strings("record_types", catalog.RecordTypes()),
		)
	}

	opts.Resolver, err = server.NewResolver(cfg.ResolverKind, cfg.MissingFieldMode, catalog)
	if err != nil {
		return err
	}

	h, err := server.NewHandler(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("authz_mode", string(cfg.Authorization)),
			zap.String("resolver", string(cfg.ResolverKind)),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
