package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/config"
	"github.com/iliyamo/space-reservation/internal/database"
	"github.com/iliyamo/space-reservation/internal/handler"
	"github.com/iliyamo/space-reservation/internal/logging"
	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/queue"
	"github.com/iliyamo/space-reservation/internal/repository"
	"github.com/iliyamo/space-reservation/internal/router"
	"github.com/iliyamo/space-reservation/internal/seed"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to a .env file (optional)")
	migrate := pflag.Bool("migrate", true, "create missing tables on start")
	seedFile := pflag.String("seed", "", "YAML seed file with users and spaces to create")
	pflag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("load %s: %v", *envFile, err)
	}
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel).With(slog.String("env", cfg.Env))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *migrate, *seedFile); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool, seedFile string) error {
	db, dialect, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected", slog.String("driver", dialect.Name))

	if migrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			return err
		}
	}

	store := repository.NewStore(db, dialect)
	if seedFile != "" {
		f, err := seed.LoadFile(seedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, store.Users, store.Spaces, f, cfg.BcryptCost, logger); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and search cache disabled")
	} else {
		defer rdb.Close()
	}

	evCfg := config.LoadEventConfig()
	sink, closeSink := eventSink(evCfg, logger)
	defer closeSink()

	opts := []booking.Option{
		booking.WithEventSink(sink),
		booking.WithLocation(cfg.Location),
		booking.WithLogger(logger),
		booking.WithPublishTimeout(evCfg.PublishTimeout),
		booking.WithStrictCancel(cfg.CancelRequireActive),
	}
	if !cfg.QuotaCountCancelled {
		opts = append(opts, booking.WithQuotaStatuses(model.StatusPending, model.StatusConfirmed))
	}
	svc := booking.NewService(store, opts...)

	e := router.New(router.Deps{
		DB:           db,
		Redis:        rdb,
		Logger:       logger,
		JWTSecret:    cfg.JWTSecret,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        config.LoadCacheConfig(),
		Auth:         handler.NewAuthHandler(cfg, store.Users, repository.NewTokenRepo(db)),
		Reservations: handler.NewReservationHandler(svc),
		Spaces:       handler.NewSpaceHandler(store.Spaces, store.Reservations, svc),
		Users:        handler.NewUserHandler(store.Users),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", slog.String("addr", addr), slog.String("timezone", cfg.Timezone), slog.String("event_sink", evCfg.Sink))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", slog.Any("error", err))
	}
	if err := svc.Drain(shutdownCtx); err != nil {
		logger.Warn("event drain", slog.Any("error", err))
	}
	return nil
}

// eventSink builds the sink selected by EVENT_SINK and a function that
// releases it.
func eventSink(cfg config.EventConfig, logger *slog.Logger) (booking.EventSink, func()) {
	switch cfg.Sink {
	case config.SinkAMQP:
		p := queue.NewPublisher(cfg.AMQPURL, cfg.Queue, logger)
		return p, func() { _ = p.Close() }
	case config.SinkWebhook:
		if cfg.WebhookURL == "" {
			logger.Warn("EVENT_SINK=webhook without RESERVATION_WEBHOOK_URL; events are logged")
			return booking.LogSink{Logger: logger}, func() {}
		}
		return queue.NewWebhookSink(cfg.WebhookURL, cfg.WebhookTimeout), func() {}
	case config.SinkNone:
		return booking.NopSink{}, func() {}
	default:
		return booking.LogSink{Logger: logger}, func() {}
	}
}
