package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/activity"
	"github.com/fyrsmithlabs/dvc-connector/internal/config"
	"github.com/fyrsmithlabs/dvc-connector/internal/dispatch"
	"github.com/fyrsmithlabs/dvc-connector/internal/extract"
	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
	"github.com/fyrsmithlabs/dvc-connector/internal/metrics"
	"github.com/fyrsmithlabs/dvc-connector/internal/mirror"
	"github.com/fyrsmithlabs/dvc-connector/internal/store"
	"github.com/fyrsmithlabs/dvc-connector/internal/telemetry"
)

// app holds the wired pipeline shared by every command.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	telemetry  *telemetry.Telemetry
	dispatcher *dispatch.Dispatcher
}

// loadConfig reads configuration honouring --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// initLogger builds the application logger from the log section.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg, err := logging.FromSettings(cfg.Log)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logCfg, nil)
}

// newApp wires mirror store, synchronizer, extractor, writer and dispatcher.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	mirrors := mirror.NewStore(cfg.Mirror.Root)
	if err := mirrors.Setup(); err != nil {
		return nil, err
	}

	writer, err := store.NewWriter(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("creating database writer: %w", err)
	}

	var log *activity.Log
	if !cfg.Activity.Disabled {
		log = activity.New(cfg.Activity.Window, cfg.Activity.MaxEntries)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	tel, err := telemetry.New(ctx, cfg.Telemetry, version, logger)
	if err != nil {
		return nil, err
	}

	d := dispatch.New(
		mirror.NewSynchronizer(mirrors, mirror.Options{Remote: cfg.Mirror.Remote, Branch: cfg.Mirror.Branch}, logger),
		extract.New(extract.Options{
			Dir:         cfg.Extract.Dir,
			Method:      cfg.Extract.Method,
			Description: cfg.Extract.Description,
			Lab:         cfg.Extract.Lab,
		}, logger),
		writer,
		dispatch.Options{
			Activity:      log,
			StrictConnect: cfg.Database.StrictConnect,
			Tracer:        tel.Tracer("github.com/fyrsmithlabs/dvc-connector/internal/dispatch"),
		},
		logger,
		m,
	)

	logger.Info(ctx, "pipeline configured",
		zap.String("mirror_root", mirrors.Root()),
		zap.String("branch", cfg.Mirror.Branch),
		zap.String("driver", cfg.Database.Driver),
		zap.String("table", cfg.Database.Table),
		zap.Bool("activity_log", log != nil),
		zap.Bool("tracing", tel.Enabled()),
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		metrics:    m,
		telemetry:  tel,
		dispatcher: d,
	}, nil
}

// close flushes pending spans.
func (a *app) close(ctx context.Context) {
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
}
