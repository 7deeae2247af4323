package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/escrowdesk/api/controllers"
	"github.com/angelmondragon/escrowdesk/api/routes"
	"github.com/angelmondragon/escrowdesk/internal/inflight"
	"github.com/angelmondragon/escrowdesk/internal/journal"
	"github.com/angelmondragon/escrowdesk/internal/payments"
	"github.com/angelmondragon/escrowdesk/internal/payouts"
	"github.com/angelmondragon/escrowdesk/pkg/config"
	"github.com/angelmondragon/escrowdesk/pkg/db"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
	"github.com/angelmondragon/escrowdesk/pkg/marketplace"
	"github.com/angelmondragon/escrowdesk/pkg/metrics"
	"github.com/angelmondragon/escrowdesk/pkg/migrate"
	"github.com/angelmondragon/escrowdesk/pkg/redis"
	"github.com/angelmondragon/escrowdesk/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	ready := map[string]controllers.Pinger{"redis": redisClient}

	recorder := journal.Recorder(journal.Discard{})
	var journalLister controllers.JournalLister
	if cfg.Journal.Enabled {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		closers = append(closers, dbClient.Close)
		ready["journal_db"] = dbClient

		if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
			return err
		}

		journalService, err := journal.NewService(journal.NewRepository(dbClient.DB()), logg)
		if err != nil {
			return err
		}
		recorder = journalService
		journalLister = journalService
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	meters := metrics.New(registry)

	backend, err := marketplace.NewClient(cfg.Backend.BaseURL,
		marketplace.WithTimeout(cfg.Backend.Timeout),
		marketplace.WithUserAgent(cfg.Backend.UserAgent),
		marketplace.WithObserver(meters.ObserveBackend),
	)
	if err != nil {
		return err
	}

	var cards payments.CardConfirmer
	if cfg.Stripe.APIKey != "" {
		stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return err
		}
		cards = payments.NewCardConfirmer(stripeClient)
	} else {
		logg.Warn(ctx, "stripe api key not set, card payments disabled")
	}

	paymentLocks, err := inflight.NewGuard(redisClient, cfg.Payments.InFlightTTL, "payment")
	if err != nil {
		return err
	}
	payoutLocks, err := inflight.NewGuard(redisClient, cfg.Payouts.ActionLockTTL, "payout")
	if err != nil {
		return err
	}
	correlations, err := payments.NewCorrelationStore(redisClient, cfg.Payments.PayPalCorrelationTTL)
	if err != nil {
		return err
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Backend:       backend,
		Cards:         cards,
		Correlations:  correlations,
		Locks:         paymentLocks,
		Journal:       recorder,
		Metrics:       meters,
		Logger:        logg,
		ManualMethods: cfg.Payments.ManualMethods,
	})
	if err != nil {
		return err
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Backend: backend,
		Locks:   payoutLocks,
		Journal: recorder,
		Metrics: meters,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"backend": cfg.Backend.BaseURL,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Payments:    paymentService,
			Payouts:     payoutService,
			Journal:     journalLister,
			Idempotency: redisClient,
			Ready:       ready,
			Gatherer:    registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
