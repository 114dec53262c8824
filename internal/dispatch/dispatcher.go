// Package dispatch runs the sync pipeline for one repository request:
// mirror synchronization, record extraction, then upload.
//
// The pipeline is sequential and blocking. It assumes at most one
// invocation per repository name is in flight; Queue provides that for a
// long-running process by handling requests one at a time.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/activity"
	"github.com/fyrsmithlabs/dvc-connector/internal/extract"
	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
	"github.com/fyrsmithlabs/dvc-connector/internal/metrics"
	"github.com/fyrsmithlabs/dvc-connector/internal/mirror"
	"github.com/fyrsmithlabs/dvc-connector/internal/store"
)

// Synchronizer brings a local mirror up to date.
type Synchronizer interface {
	EnsureSynced(ctx context.Context, name, url string) (*mirror.Mirror, error)
}

// Extractor reads records out of a mirror.
type Extractor interface {
	Extract(ctx context.Context, mirrorRoot string) (*extract.Result, error)
}

// Uploader writes records to the database.
type Uploader interface {
	Upload(ctx context.Context, schema []extract.Column, records []extract.Record) (*store.UploadResult, error)
}

// Options configures a Dispatcher.
type Options struct {
	// Activity records every accepted request. Nil disables the log.
	Activity *activity.Log

	// StrictConnect makes an unreachable database fail the request.
	StrictConnect bool

	// Tracer opens the request and stage spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Dispatcher wires the pipeline stages together.
type Dispatcher struct {
	sync     Synchronizer
	extract  Extractor
	upload   Uploader
	activity *activity.Log
	strict   bool
	tracer   trace.Tracer
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// New creates a Dispatcher. m may be nil.
func New(sync Synchronizer, ext Extractor, up Uploader, opts Options, logger *logging.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Dispatcher{
		sync:     sync,
		extract:  ext,
		upload:   up,
		activity: opts.Activity,
		strict:   opts.StrictConnect,
		tracer:   tracer,
		logger:   logger.Named("dispatch"),
		metrics:  m,
	}
}

// Handle parses a raw request and runs the pipeline for it.
func (d *Dispatcher) Handle(ctx context.Context, req map[string]any) error {
	src, err := ParseRequest(req)
	if err != nil {
		d.logger.Warn(ctx, "rejecting request", zap.Error(err))
		d.metrics.Request(metrics.OutcomeMalformed)
		return err
	}
	return d.HandleSource(ctx, src)
}

// HandleSource runs sync, extract and upload for src.
//
// Sync and extract errors are returned. A database connection failure is
// logged and swallowed unless strict connect is enabled; the extracted
// records are then dropped.
func (d *Dispatcher) HandleSource(ctx context.Context, src SourceRequest) (err error) {
	if logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}
	ctx = logging.WithRepository(ctx, src.Name)

	ctx, span := d.tracer.Start(ctx, "dispatch.request", trace.WithAttributes(
		attribute.String("repository.name", src.Name),
		attribute.String("request.id", logging.RequestIDFromContext(ctx)),
	))
	defer func() { endSpan(span, err) }()

	d.logger.Info(ctx, "sync requested", zap.String("url", src.URL))
	if d.activity != nil {
		d.activity.Add(src.Name, src.URL)
	}

	start := time.Now()
	stageCtx, stage := d.tracer.Start(ctx, "dispatch.sync")
	m, err := d.sync.EnsureSynced(stageCtx, src.Name, src.URL)
	if err == nil {
		stage.SetAttributes(attribute.Bool("mirror.cloned", m.Cloned), attribute.String("mirror.head", m.Head))
	}
	endSpan(stage, err)
	d.metrics.ObserveStage(metrics.StageSync, start)
	if err != nil {
		d.metrics.Sync(errors.Is(err, mirror.ErrClone), err)
		d.metrics.Request(metrics.OutcomeSyncFailed)
		d.logger.Error(ctx, "repository sync failed", zap.Error(err))
		return err
	}
	d.metrics.Sync(m.Cloned, nil)

	start = time.Now()
	stageCtx, stage = d.tracer.Start(ctx, "dispatch.extract")
	res, err := d.extract.Extract(stageCtx, m.Path)
	if err == nil {
		stage.SetAttributes(attribute.Int("records", len(res.Records)), attribute.Int("skipped", len(res.Skipped)))
	}
	endSpan(stage, err)
	d.metrics.ObserveStage(metrics.StageExtract, start)
	if err != nil {
		d.metrics.Request(metrics.OutcomeExtractError)
		d.logger.Error(ctx, "record extraction failed", zap.Error(err))
		return err
	}
	d.metrics.Extracted(len(res.Records), len(res.Skipped))

	if len(res.Records) == 0 {
		d.logger.Info(ctx, "no records to upload", zap.Int("skipped", len(res.Skipped)))
		d.metrics.Request(metrics.OutcomeOK)
		return nil
	}

	start = time.Now()
	stageCtx, stage = d.tracer.Start(ctx, "dispatch.upload")
	up, err := d.upload.Upload(stageCtx, res.Schema, res.Records)
	if up != nil {
		stage.SetAttributes(attribute.Int("rows.inserted", up.Inserted), attribute.Int("rows.existing", up.Existing))
		d.metrics.Rows(up.Inserted, up.Existing)
	}
	endSpan(stage, err)
	d.metrics.ObserveStage(metrics.StageUpload, start)
	if err != nil {
		if errors.Is(err, store.ErrConnection) {
			d.metrics.UploadFailed("connection")
			if !d.strict {
				d.logger.Warn(ctx, "database unavailable, records dropped",
					zap.Int("records", len(res.Records)),
					zap.Error(err),
				)
				d.metrics.Request(metrics.OutcomeOK)
				return nil
			}
		} else {
			d.metrics.UploadFailed("query")
		}
		d.metrics.Request(metrics.OutcomeUploadFailed)
		d.logger.Error(ctx, "upload failed", zap.Error(err))
		return err
	}

	d.metrics.Request(metrics.OutcomeOK)
	d.logger.Info(ctx, "sync complete",
		zap.String("head", m.Head),
		zap.Int("records", len(res.Records)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("inserted", up.Inserted),
		zap.Int("existing", up.Existing),
	)
	return nil
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// LogList returns the recent activity, oldest first. It is empty when the
// activity log is disabled.
func (d *Dispatcher) LogList() []activity.Entry {
	if d == nil || d.activity == nil {
		return []activity.Entry{}
	}
	return d.activity.List()
}
