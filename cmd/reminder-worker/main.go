package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medspa-practice/cmd/mainconfig"
	"github.com/wolfman30/medspa-practice/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medspa-practice/internal/config"
	"github.com/wolfman30/medspa-practice/internal/notify"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder worker", "env", cfg.Env, "interval", cfg.ReminderPollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := mainconfig.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	if deps.Pool == nil {
		logger.Warn("no database configured, reminders scheduled by the api are not visible to this worker")
	}

	practice, err := bootstrap.BuildPractice(deps)
	if err != nil {
		logger.Error("failed to build practice services", "error", err)
		os.Exit(1)
	}

	practice.ReminderWorker(locker(deps.Redis, logger), logger).Run(ctx, cfg.ReminderPollInterval)
	logger.Info("reminder worker stopped")
}

// locker guards the dispatch loop across replicas. Without Redis every
// replica dispatches, which is only safe for a single instance.
func locker(client *redis.Client, logger *logging.Logger) notify.Locker {
	if client == nil {
		logger.Warn("redis unavailable, running reminder dispatch without a lock")
		return nil
	}
	return redislock.New(client)
}
