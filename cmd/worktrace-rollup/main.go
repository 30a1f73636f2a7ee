package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/worktrace/worktrace/internal/config"
	"github.com/worktrace/worktrace/internal/platform/factory"
	"github.com/worktrace/worktrace/internal/platform/logger"
	"github.com/worktrace/worktrace/internal/rollup"
)

func main() {
	once := flag.Bool("once", false, "Run a single rollup cycle and exit")
	flag.Parse()

	log := logger.New("worktrace-rollup")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	st, err := factory.NewStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage")
	}

	w := rollup.NewWorker(st, rollup.Config{
		Interval:      time.Duration(cfg.RollupIntervalMinutes) * time.Minute,
		RetentionDays: cfg.RetentionDays,
		DeleteRolled:  cfg.RollupDeleteRolled,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := w.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("rollup cycle")
			os.Exit(1)
		}
		return
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("rollup worker exit")
		os.Exit(1)
	}
}
