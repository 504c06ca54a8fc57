package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookLendingManagement/internal/auth"
	"bookLendingManagement/internal/config"
	"bookLendingManagement/internal/db"
	"bookLendingManagement/internal/httpapi"
	"bookLendingManagement/internal/lending"
	"bookLendingManagement/repository"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (optional, env vars used otherwise)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("starting book lending service", slog.String("env", cfg.Env))

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			lgr.Error("close db", slog.Any("error", err))
		}
	}()

	users := repository.NewUserRepository(d)
	books := repository.NewBookRepository(d)
	loans := repository.NewLendingRepository(d)

	migrated, err := users.BackfillSubjectIDs(context.Background())
	if err != nil {
		log.Fatalf("backfill subject ids: %v", err)
	}
	if migrated > 0 {
		lgr.Info("backfilled legacy user ids", slog.Int("count", migrated))
	}

	coord := lending.NewCoordinator(books, loans)
	gate := &auth.Gate{Secret: cfg.Auth.JWTSecret, Users: users}
	api := httpapi.NewServer(lgr, d, users, books, coord, gate, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		lgr.Info("http server listening", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lgr.Error("shutdown", slog.Any("error", err))
	}
	lgr.Info("stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
