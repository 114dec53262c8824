package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/dispatch"
	httpserver "github.com/fyrsmithlabs/dvc-connector/internal/http"
)

// serveCmd runs the webhook listener and the sync worker
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook listener",
	Long: `Run the HTTP listener and the sync worker.

POST /webhook accepts GitHub push events or {"name": ..., "clone_url": ...}
bodies and queues the repository. Requests are handled one at a time.

Examples:
  # Listen on the configured address
  dvc-connector serve

  # Use an explicit config file
  dvc-connector serve --config /etc/dvc-connector/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	queue := dispatch.NewQueue(a.dispatcher, cfg.Server.QueueSize, logger, a.metrics)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		queue.Run(ctx)
	}()

	srv, err := httpserver.NewServer(queue, a.dispatcher, logger, &httpserver.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		WebhookSecret: cfg.Server.WebhookSecret,
		RateLimit:     cfg.Server.RateLimit,
		RateBurst:     cfg.Server.RateBurst,
		Registry:      a.registry,
		Metrics:       a.metrics,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}
	if !cfg.Server.WebhookSecret.IsSet() {
		logger.Warn(ctx, "webhook secret not set, signatures are not verified")
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel()
			<-workerDone
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "server shutdown error", zap.Error(err))
	}

	// Let an in-flight sync observe cancellation before exiting.
	cancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn(shutdownCtx, "sync worker did not stop before shutdown timeout")
	}

	a.close(shutdownCtx)
	logger.Info(shutdownCtx, "server stopped gracefully")
	return nil
}
