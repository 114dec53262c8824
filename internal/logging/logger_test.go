package logging

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/dvc-connector/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, cfg, logger.config)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be")
}

func TestNewLogger_OTELOutput(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}

	_, err := NewLogger(cfg, nil)
	require.Error(t, err, "otel output without a provider leaves no core")

	logger, err := NewLogger(cfg, noop.NewLoggerProvider())
	require.NoError(t, err)
	logger.Info(context.Background(), "bridged")
	assert.NoError(t, logger.Sync())
}

func TestFromSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings config.LogConfig
		level    zapcore.Level
		format   string
		wantErr  bool
	}{
		{name: "empty keeps defaults", level: zapcore.InfoLevel, format: "json"},
		{name: "debug console", settings: config.LogConfig{Level: "debug", Format: "console"}, level: zapcore.DebugLevel, format: "console"},
		{name: "trace", settings: config.LogConfig{Level: "trace"}, level: TraceLevel, format: "json"},
		{name: "bad level", settings: config.LogConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", settings: config.LogConfig{Format: "yaml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromSettings(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level, cfg.Level)
			assert.Equal(t, tt.format, cfg.Format)
		})
	}
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithRepository(ctx, "nmgrl-ages")

	logger.Trace(ctx, "trace message")
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message", zap.String("key", "val"))
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	entries := observed.All()
	require.Len(t, entries, 5)

	levels := []zapcore.Level{TraceLevel, zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		assert.Equal(t, levels[i], entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "req-1", fields["request.id"])
		assert.Equal(t, "nmgrl-ages", fields["repository"])
	}
	assert.Equal(t, "val", entries[2].ContextMap()["key"])
}

func TestLogger_WithAndNamed(t *testing.T) {
	tl := NewTestLogger()

	child := tl.With(zap.String("component", "mirror")).Named("sync")
	child.Info(context.Background(), "child message")

	entries := tl.FilterMessage("child message").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sync", entries[0].LoggerName)
	assert.Equal(t, "mirror", entries[0].ContextMap()["component"])
}

func TestContextFields(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("span context", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{0x01, 0x02},
			SpanID:     trace.SpanID{0x03},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		enc := zapcore.NewMapObjectEncoder()
		for _, f := range ContextFields(ctx) {
			f.AddTo(enc)
		}
		assert.Equal(t, sc.TraceID().String(), enc.Fields["trace_id"])
		assert.Equal(t, sc.SpanID().String(), enc.Fields["span_id"])
		assert.Equal(t, true, enc.Fields["trace_sampled"])
	})

	t.Run("invalid ids are ignored", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "bad id with spaces")
		ctx = WithRepository(ctx, "../escape")
		assert.Empty(t, RequestIDFromContext(ctx))
		assert.Empty(t, RepositoryFromContext(ctx))
	})
}

func TestSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled:    true,
		Tick:       time.Minute,
		Initial:    1,
		Thereafter: 0,
	})
	logger := zap.New(sampled)

	for i := 0; i < 5; i++ {
		logger.Info("repeated info")
		logger.Error("repeated error")
	}

	assert.Equal(t, 1, observed.FilterMessage("repeated info").Len())
	assert.Equal(t, 5, observed.FilterMessage("repeated error").Len())
}

func TestTestLogger_Assertions(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "sample already exists", zap.String("sample", "S100"))

	tl.AssertLogged(t, zapcore.InfoLevel, "already exists")
	tl.AssertNotLogged(t, zapcore.WarnLevel, "already exists")
	tl.AssertField(t, "sample already exists", "sample", "S100")
	assert.Equal(t, 1, tl.CountMessage("sample already exists"))

	tl.Reset()
	assert.Empty(t, tl.All())
}
