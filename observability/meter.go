package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/httpkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a periodic OTLP/HTTP meter provider as the global one.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Request outcomes recorded by ClientMetrics.
const (
	OutcomeSuccess = "success"
	OutcomeStatus  = "unexpected_status"
	OutcomeError   = "error"
)

// Pool lifecycle events recorded by ClientMetrics.
const (
	PoolCreated   = "created"
	PoolDestroyed = "destroyed"
	PoolRejected  = "rejected"
)

// ClientMetrics holds the instruments recorded by HTTP clients and their
// connection pools. A nil *ClientMetrics records nothing.
type ClientMetrics struct {
	requests   metric.Int64Counter
	duration   metric.Float64Histogram
	inFlight   metric.Int64UpDownCounter
	retries    metric.Int64Counter
	poolEvents metric.Int64Counter
}

// NewClientMetrics creates the client instruments on meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requests, err := meter.Int64Counter("httpkit.client.requests",
		metric.WithDescription("Completed client requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.client.requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("httpkit.client.duration",
		metric.WithDescription("Client request duration until response headers"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.client.duration histogram: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter("httpkit.client.in_flight",
		metric.WithDescription("Requests holding a pool slot"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.client.in_flight counter: %w", err)
	}

	retries, err := meter.Int64Counter("httpkit.client.retries",
		metric.WithDescription("Attempts made after the first"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.client.retries counter: %w", err)
	}

	poolEvents, err := meter.Int64Counter("httpkit.pool.events",
		metric.WithDescription("Connection pool lifecycle events"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.pool.events counter: %w", err)
	}

	return &ClientMetrics{
		requests:   requests,
		duration:   duration,
		inFlight:   inFlight,
		retries:    retries,
		poolEvents: poolEvents,
	}, nil
}

// RequestStarted marks a request as in flight.
func (m *ClientMetrics) RequestStarted(ctx context.Context, client string) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrClientName, client)))
}

// RequestFinished records a completed request. status is 0 when no
// response was received.
func (m *ClientMetrics) RequestFinished(ctx context.Context, client, method, outcome string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, -1, metric.WithAttributes(attribute.String(AttrClientName, client)))
	attrs := metric.WithAttributes(
		attribute.String(AttrClientName, client),
		attribute.String(AttrMethod, method),
		attribute.String("outcome", outcome),
		attribute.String("status_class", statusClass(status)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// Retried records an attempt after the first.
func (m *ClientMetrics) Retried(ctx context.Context, client string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrClientName, client)))
}

// PoolEvent records a pool lifecycle event.
func (m *ClientMetrics) PoolEvent(ctx context.Context, pool string, shared bool, event string) {
	if m == nil {
		return
	}
	m.poolEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPoolName, pool),
		attribute.Bool("shared", shared),
		attribute.String("event", event),
	))
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
