package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"petani-backend/internal/audit"
	"petani-backend/internal/auth"
	"petani-backend/internal/config"
	"petani-backend/internal/database"
	"petani-backend/internal/logger"
	"petani-backend/internal/server"
	"petani-backend/internal/store"
	"petani-backend/internal/websession"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "petani-backend")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	if cfg.Database.UsesDefaultCredentials() {
		zlog.Warn("database uses default credentials; set DB_USER/DB_PASSWORD or DATABASE_URL")
	}

	db, err := database.Open(cfg.Database, zlog)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.Migrate(db, zlog); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	opts := websession.Options{TTL: cfg.SessionTTL, Secure: cfg.CookieSecure}
	if cfg.Redis.Enabled() {
		rs := websession.NewRedisStorage(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rs.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		defer func() { _ = rs.Close() }()
		opts.Storage = rs
		zlog.Info("sessions stored in redis", zap.String("addr", cfg.Redis.Addr))
	}

	app, err := server.New(server.Deps{
		Config:   cfg,
		Log:      zlog,
		Users:    store.NewUserStore(db),
		Farmers:  store.NewFarmerStore(db),
		Records:  store.NewRecordStore(db),
		Activity: audit.NewStore(db),
		Hasher:   auth.BcryptHasher{},
		Sessions: websession.New(opts, zlog),
		Tokens:   auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL),
		Ping:     func(ctx context.Context) error { return database.Ping(ctx, db) },
	})
	if err != nil {
		return err
	}

	return serve(app, ":"+cfg.HTTPPort, zlog)
}

func serve(app *fiber.App, addr string, zlog *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("shutdown", zap.Error(err))
	}
	return nil
}
