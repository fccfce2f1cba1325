// Package main provides the entry point for the lesson planner web server.
// It loads configuration, sets up observability, builds the pipeline and serves the pages and API.
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

	"lessonapp/internal/config"
	"lessonapp/internal/di"
	"lessonapp/internal/handlers"
	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"
	"lessonapp/internal/version"
)

const shutdownTimeout = 30 * time.Second

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	server    *http.Server
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	lessonPlanService, err := container.GetLessonPlanService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get lesson plan service")
	}

	cfg := container.GetConfig()
	router, err := handlers.NewRouter(cfg, lessonPlanService, container.GetLogger())
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build router")
	}

	return &Application{
		container: container,
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// Generation may take up to GenerationTimeout before the response is written.
			WriteTimeout: config.GenerationTimeout + 30*time.Second,
		},
	}, nil
}

// Run serves until ctx is done or the listener fails
func (a *Application) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return contextutils.WrapError(err, "server failed")
	}
}

// Shutdown stops accepting requests, waits for in-flight ones, then releases the services
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil {
		return contextutils.WrapError(err, "http server shutdown failed")
	}
	return a.container.Shutdown(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, cfg.OpenTelemetry.ServiceName, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	container := di.NewServiceContainer(cfg, logger, mp)
	container.OnShutdown(func(ctx context.Context) error {
		return observability.ShutdownTracerProvider(ctx, tp)
	})
	if mp != nil {
		container.OnShutdown(mp.Shutdown)
	}
	container.OnShutdown(func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	logger.Info(ctx, "Starting lesson planner", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
		"provider": cfg.AI.Provider,
		"version":  version.Version,
		"commit":   version.Commit,
	})

	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "Application failed", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "Received shutdown signal, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error during application shutdown", err)
		os.Exit(1)
	}
	logger.Info(shutdownCtx, "Shutdown completed successfully")
}
