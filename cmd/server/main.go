package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"possync/internal/app/server/api"
	"possync/internal/app/server/config"
	"possync/internal/domain/catalog"
	"possync/internal/infrastructure/storage/postgres"
	"possync/internal/utils/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer storage.Close()

	services := api.NewServices(storage, log)

	if cfg.Server.SeedPath != "" {
		if err := seed(ctx, services.Catalog, cfg.Server.SeedPath); err != nil {
			return err
		}
	}

	if cfg.Server.APIToken == "" {
		log.Warn("API_TOKEN is empty, sync endpoints are not protected")
	}

	server := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           api.New(services, storage, cfg.Server.APIToken, log),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", "address", cfg.Server.RunAddress, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server exited properly")
	return nil
}

func seed(ctx context.Context, svc catalog.Servicer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}

	var s catalog.Seed
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("parse seed %s: %w", path, err)
	}

	return svc.Seed(ctx, s)
}
