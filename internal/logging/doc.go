// Package logging provides structured logging for dvc-connector.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Stdout output, optionally teed into OpenTelemetry
//   - Automatic context field injection (trace_id, request.id, repository)
//   - Secret redaction at the encoder, including credentials in URLs
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	cfg, err := logging.FromSettings(appCfg.Log)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, id)
//	ctx = logging.WithRepository(ctx, "nmgrl-data")
//	logger.Info(ctx, "repository synchronized", zap.String("head", hash))
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	svc := mirror.NewSynchronizer(store, opts, tl.Logger)
//	...
//	tl.AssertLogged(t, zapcore.InfoLevel, "cloning repository")
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
