package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "publish-notifier"

// GetTracer returns the tracer used for notification spans.
// It resolves against the global provider on each call so a provider
// installed after package init is honored.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "notify.Notify")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
