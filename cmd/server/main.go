package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	vrsaroot "github.com/theelderemo/vrsa"
	"github.com/theelderemo/vrsa/internal/config"
	"github.com/theelderemo/vrsa/internal/handler"
	"github.com/theelderemo/vrsa/internal/middleware"
	"github.com/theelderemo/vrsa/internal/repository"
	"github.com/theelderemo/vrsa/internal/repository/memory"
	"github.com/theelderemo/vrsa/internal/repository/postgres"
	"github.com/theelderemo/vrsa/internal/repository/sqlite"
	"github.com/theelderemo/vrsa/internal/service"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the record store
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize services
	sessionService := service.NewSessionService(store)
	contextService := service.NewContextService(store)

	var generator service.Generator
	if cfg.OpenRouterKey != "" {
		generator = service.NewOpenRouterGenerator(cfg.OpenRouterKey, cfg.GenerateModel)
	} else {
		slog.Info("no OPENROUTER_API_KEY set, generate endpoint disabled")
	}

	// Initialize server
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.Logging())

	h := handler.New(handler.Deps{
		Sessions:  sessionService,
		Contexts:  contextService,
		Generator: generator,
	})
	h.RegisterRoutes(e)

	// Start expired session purge goroutine
	go func() {
		ticker := time.NewTicker(config.PurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.DeleteExpiredSessions(context.Background(), time.Now())
				if err != nil {
					slog.Error("purge expired sessions", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("purged expired sessions", "count", removed)
				}
			}
		}
	}()

	// Start server
	go func() {
		slog.Info("starting server", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		migrationsFS, err := fs.Sub(vrsaroot.MigrationsFS, "migrations")
		if err != nil {
			return nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		if err := postgres.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return postgres.New(ctx, cfg.DatabaseURL)
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
