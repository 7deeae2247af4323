package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/escrowdesk/internal/cron"
	"github.com/angelmondragon/escrowdesk/internal/journal"
	"github.com/angelmondragon/escrowdesk/pkg/config"
	"github.com/angelmondragon/escrowdesk/pkg/db"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
	"github.com/angelmondragon/escrowdesk/pkg/metrics"
	"github.com/angelmondragon/escrowdesk/pkg/migrate"
	"github.com/angelmondragon/escrowdesk/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Journal.Enabled {
		logg.Warn(context.Background(), "journal disabled, nothing for the cron worker to do")
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	journalService, err := journal.NewService(journal.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create journal service", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewJournalRetentionJob(cron.JournalRetentionJobParams{
		Logger:        logg,
		Journal:       journalService,
		RetentionDays: cfg.Journal.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create journal retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, "journal-retention", 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	worker, err := cron.NewWorker(cron.WorkerParams{
		Logger:   logg,
		Jobs:     []cron.Job{retentionJob},
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Journal.PruneInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"retention_days": cfg.Journal.RetentionDays,
		"interval":       cfg.Journal.PruneInterval.String(),
	})

	if *once {
		if err := worker.RunOnce(ctx); err != nil {
			logg.Error(ctx, "journal sweep failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
