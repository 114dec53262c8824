// Package telemetry sets up OpenTelemetry trace export for dvc-connector.
//
// The dispatcher opens one span per request with a child span per pipeline
// stage (sync, extract, upload). Log lines written inside those spans carry
// trace_id and span_id through the logging package.
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"        # or "http/protobuf"
//	  insecure: true
//	  sample_rate: 1.0
//
// Telemetry is disabled by default. When disabled, or when the exporter
// cannot be created, Tracer returns a no-op tracer and the pipeline runs
// unchanged.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "stage")
//	span.End()
//	tt.AssertSpanExists(t, "stage")
package telemetry
