package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jimdaga/meetup/internal/auth"
	"github.com/jimdaga/meetup/internal/categories"
	"github.com/jimdaga/meetup/internal/comments"
	"github.com/jimdaga/meetup/internal/config"
	"github.com/jimdaga/meetup/internal/database"
	"github.com/jimdaga/meetup/internal/events"
	"github.com/jimdaga/meetup/internal/logging"
	"github.com/jimdaga/meetup/internal/server"
	"github.com/jimdaga/meetup/internal/store"
	"github.com/jimdaga/meetup/internal/users"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	if err := database.RunMigrations(db); err != nil {
		_ = database.Close(db)
		return err
	}

	if cfg.SeedDevData {
		if err := seed(db, cfg.SeedFile); err != nil {
			_ = database.Close(db)
			return err
		}
	}

	st := store.New(db)
	dir := users.NewDirectory(st.Users())

	router := server.NewRouter(server.Deps{
		Config:     cfg,
		Logger:     logger,
		Users:      dir,
		Tokens:     auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Events:     events.NewService(st),
		Categories: categories.NewService(st.Categories()),
		Comments:   comments.NewService(st),
		Health:     func(ctx context.Context) error { return database.Ping(ctx, db) },
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Meetup API configured", "env", cfg.Env, "port", cfg.Port)

	return server.Run(ctx, server.Options{
		Addr:            ":" + cfg.Port,
		RequestTimeout:  cfg.RequestTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, router, func() error { return database.Close(db) })
}

// seed loads SEED_FILE, or the embedded fixture when it is unset.
func seed(db *gorm.DB, path string) error {
	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
	}

	fx, err := database.ParseSeedFixture(data)
	if err != nil {
		return err
	}
	return database.SeedDevData(db, fx)
}
