package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/logging"
	"github.com/JonMunkholm/catalogsync/internal/source"
	"github.com/JonMunkholm/catalogsync/internal/store"
	"github.com/JonMunkholm/catalogsync/internal/web"
)

// catalogStore is a core.Store the process owns.
type catalogStore interface {
	core.Store
	EnsureSchema(ctx context.Context) error
	Close() error
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// run starts the service and blocks until the HTTP server stops. Every
// resource it opens is released before it returns.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	rules, err := config.LoadRules(cfg.Sync.RulesFile)
	if err != nil {
		return fmt.Errorf("load catalog rules: %w", err)
	}

	slog.Info("configuration loaded",
		"store", cfg.Database.Driver,
		"partitions", len(cfg.Source.Partitions),
		"batch_size", cfg.Sync.BatchSize,
		"interval", cfg.Sync.Interval.String(),
		"categories", len(rules.Categories),
	)

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if cfg.Database.AutoMigrate {
		if err := st.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	src := source.New(cfg.Source, &http.Client{})
	service := core.NewService(st, src, core.OptionsFromConfig(cfg, rules))
	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	if cfg.Sync.Interval > 0 {
		go service.StartScheduler(jobCtx, cfg.Sync.Interval)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if service.Status().Running {
			slog.Info("waiting for the active sync to finish")
			if err := service.WaitForIdle(shutdownCtx); err != nil {
				slog.Warn("sync did not finish in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (catalogStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return store.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return store.ConnectPostgres(ctx, cfg)
	}
}
