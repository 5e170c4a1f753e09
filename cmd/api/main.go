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
	"github.com/rs/zerolog"

	"github.com/jawssame7/taskstack/internal/app/files"
	"github.com/jawssame7/taskstack/internal/app/httpapi"
	"github.com/jawssame7/taskstack/internal/app/tasks"
	"github.com/jawssame7/taskstack/internal/objectstore"
	"github.com/jawssame7/taskstack/internal/platform/clients"
	"github.com/jawssame7/taskstack/internal/platform/env"
	"github.com/jawssame7/taskstack/internal/platform/environment"
	"github.com/jawssame7/taskstack/internal/platform/logging"
	"github.com/jawssame7/taskstack/internal/platform/metrics"
	"github.com/jawssame7/taskstack/internal/platform/natsutil"
	"github.com/jawssame7/taskstack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(env.String("LOG_LEVEL", "info"), "api")

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := environment.Resolve()
	cfg := clients.Load(e)
	logger.Info().
		Str("stage", e.Stage).
		Str("mode", string(e.Mode)).
		Str("table", cfg.Store.Table).
		Str("bucket", cfg.Objects.Bucket).
		Str("queue", cfg.Queue.URL).
		Msg("environment resolved")

	pool, err := clients.NewStorePool(runCtx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open record store pool")
	}
	defer pool.Close()

	records := storage.New(pool, cfg.Store.Table)
	if err := waitForSchema(runCtx, records, 30*time.Second, logger); err != nil {
		logger.Fatal().Err(err).Msg("record store schema not ready")
	}

	objects, err := objectstore.New(cfg.Objects)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store client")
	}
	if err := objects.EnsureBucket(runCtx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure bucket")
	}

	queue, err := natsutil.ConnectJetStreamWithRetry(cfg.Queue.URL, cfg.Queue.Stream, cfg.Queue.Subject, 20*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer queue.Close()

	publisher := natsutil.JetStreamPublisher{JS: queue.JS}
	taskSvc := tasks.NewService(records, publisher.Publish, cfg.Queue.Subject, logger)
	fileSvc := files.NewService(records, objects, logger)

	handler := httpapi.NewHandler(taskSvc, fileSvc, httpapi.Probes{
		Store:   records.Ping,
		Objects: objects.Probe,
		Queue:   func(context.Context) error { return queue.Probe() },
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.DefaultHandler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              env.String("HTTP_ADDR", env.DefaultHTTPAddr),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info().Msgf("api listening on %s", server.Addr)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Fatal().Err(err).Msg("HTTP server failed")
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.Duration("SHUTDOWN_TIMEOUT", 10*time.Second))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func waitForSchema(ctx context.Context, records *storage.Store, timeout time.Duration, logger zerolog.Logger) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = records.EnsureSchema(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		logger.Warn().Err(lastErr).Msg("waiting for record store readiness")
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}
