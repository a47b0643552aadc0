// Command notifier consumes reservation.created events from RabbitMQ and
// forwards each one to the configured webhook.  Every event is also
// appended to a local log file.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iliyamo/space-reservation/internal/config"
	"github.com/iliyamo/space-reservation/internal/logging"
	"github.com/iliyamo/space-reservation/internal/queue"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to a .env file (optional)")
	logFile := pflag.String("log-file", "logs/reservations.log", "file every event is appended to; empty disables it")
	pflag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("load %s: %v", *envFile, err)
	}
	logger := logging.New(os.Stdout, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	evCfg := config.LoadEventConfig()
	var handlers queue.Handlers
	if evCfg.WebhookURL != "" {
		handlers = append(handlers, queue.Forward(queue.NewWebhookSink(evCfg.WebhookURL, evCfg.WebhookTimeout)))
	} else {
		logger.Warn("RESERVATION_WEBHOOK_URL not set; events are only written to the log file")
	}
	if *logFile != "" {
		handlers = append(handlers, &queue.FileLog{Path: *logFile})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{
		URL:      evCfg.AMQPURL,
		Queue:    evCfg.Queue,
		Prefetch: evCfg.Prefetch,
		Handler:  handlers,
		Logger:   logger,
	}
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notifier stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
