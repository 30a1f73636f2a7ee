package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/worktrace/worktrace/internal/api"
	"github.com/worktrace/worktrace/internal/config"
	"github.com/worktrace/worktrace/internal/health"
	"github.com/worktrace/worktrace/internal/platform/factory"
	"github.com/worktrace/worktrace/internal/platform/logger"
	"github.com/worktrace/worktrace/internal/store"
)

func main() {
	// Optional build-target flag override (local | cloud-dev)
	buildTarget := flag.String("build-target", "", "Override BUILD_TARGET (local, cloud-dev)")
	flag.Parse()

	log := logger.New("worktrace-service")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *buildTarget != "" {
		cfg.BuildTarget = *buildTarget
		if err := cfg.ResolveDefaults(); err != nil {
			log.Fatal().Err(err).Msg("Invalid build-target override")
		}
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Worktrace service starting…")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// -------- Storage layer -----------------
	st, err := factory.NewStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Storage unavailable")
	}

	// -------- Health monitor ---------------
	storeChecker := store.NewStoreHealthChecker(st, log, 5*time.Second)
	go storeChecker.Start(ctx, 30*time.Second)
	serviceHealth := health.NewServiceHealthChecker(log, storeChecker)
	go serviceHealth.Start(ctx, 10*time.Second)
	api.BindServiceHealth(serviceHealth.IsHealthy)

	// -------- Router & Server --------------
	router := api.NewRouter(st, cfg)
	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down server…")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
