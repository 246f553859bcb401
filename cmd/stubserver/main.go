// Package main runs the LinkForty stub API server: an in-memory backend
// implementing the SDK's wire endpoints for local development.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/LinkForty/linkforty-go/internal/model"
	"github.com/LinkForty/linkforty-go/internal/stubapi"
)

type config struct {
	Addr    string `env:"LINKFORTY_STUB_ADDR" envDefault:":8090"`
	APIKey  string `env:"LINKFORTY_STUB_API_KEY" envDefault:""`
	BaseURL string `env:"LINKFORTY_STUB_BASE_URL" envDefault:"http://localhost:8090"`
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	server := stubapi.New(logger, cfg.APIKey, cfg.BaseURL)

	// Seed a demo link so resolution works out of the box.
	server.SeedLink("demo", &model.LinkData{
		ShortCode:   "demo",
		FallbackURL: "https://example.com/welcome",
		UTMParameters: &model.UTMParameters{
			Source: "stub",
			Medium: "demo",
		},
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("stub server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stub server stopped")
}
