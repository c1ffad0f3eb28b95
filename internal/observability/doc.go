// Package observability groups the logging, tracing and process metrics
// helpers shared by cmd/api and cmd/worker.
//
// Subpackages:
//   - logging: slog construction and request/trace ID attachment
//   - tracing: OpenTelemetry HTTP middleware and the notifier tracer
//   - metrics: connection pool collectors
package observability
