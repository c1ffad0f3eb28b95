// Package tracing wires OpenTelemetry spans into the HTTP surface and the
// notification use cases.
//
// Spans are created against the global tracer provider. Without a provider
// installed they are no-ops; tests install an in-memory one from the SDK.
package tracing
