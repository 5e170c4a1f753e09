package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/jawssame7/taskstack/internal/app/notifier"
	"github.com/jawssame7/taskstack/internal/app/tasks"
	"github.com/jawssame7/taskstack/internal/platform/clients"
	"github.com/jawssame7/taskstack/internal/platform/env"
	"github.com/jawssame7/taskstack/internal/platform/environment"
	"github.com/jawssame7/taskstack/internal/platform/logging"
	"github.com/jawssame7/taskstack/internal/platform/natsutil"
	"github.com/jawssame7/taskstack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(env.String("LOG_LEVEL", "info"), "notifier")

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := environment.Resolve()
	cfg := clients.Load(e)
	logger.Info().Str("stage", e.Stage).Str("mode", string(e.Mode)).Msg("environment resolved")

	pool, err := clients.NewStorePool(runCtx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open record store pool")
	}
	defer pool.Close()
	records := storage.New(pool, cfg.Store.Table)

	queue, err := natsutil.ConnectJetStreamWithRetry(cfg.Queue.URL, cfg.Queue.Stream, cfg.Queue.Subject, 20*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer queue.Close()

	publisher := natsutil.JetStreamPublisher{JS: queue.JS}
	taskSvc := tasks.NewService(records, publisher.Publish, cfg.Queue.Subject, logger)
	service := notifier.NewService(taskSvc, logger)

	sub, err := queue.JS.QueueSubscribe(cfg.Queue.Subject, cfg.Queue.Durable, func(msg *nats.Msg) {
		if err := service.Handle(runCtx, msg.Data); err != nil {
			if errors.Is(err, notifier.ErrInvalidMessagePayload) || errors.Is(err, notifier.ErrUnsupportedAction) {
				logger.Warn().Err(err).Msg("discarding poison message")
				_ = msg.Term()
				return
			}
			logger.Error().Err(err).Msg("message processing failed")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe")
	}

	logger.Info().Msgf("notifier listening on subject %s", sub.Subject)

	<-runCtx.Done()
	_ = sub.Drain()
}
