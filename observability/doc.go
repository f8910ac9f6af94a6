// Package observability wires OpenTelemetry tracing and metrics for httpkit
// clients.
//
// Tracing and metrics export over OTLP/HTTP:
//
//	shutdown, err := observability.Setup(ctx, observability.Config{Endpoint: "localhost:4318", Insecure: true},
//		"my-service", version.Get().Version, "production")
//	defer shutdown(ctx)
//
// Clients record their requests, retries and pool events through
// ClientMetrics:
//
//	metrics, err := observability.NewClientMetrics(observability.Meter(observability.InstrumentationName))
package observability
