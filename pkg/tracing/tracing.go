// Package tracing sets up the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Options configures the tracer provider.
type Options struct {
	ServiceName string
	Environment string
	// Endpoint is the host:port of an OTLP/HTTP collector. Spans are written
	// to Writer when it is empty.
	Endpoint string
	Insecure bool
	Writer   io.Writer
}

// Setup installs a tracer provider and the W3C trace context propagator as
// the otel globals. The returned function flushes and stops the provider.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	const op = "tracing.Setup"

	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create exporter: %w", op, err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(opts.ServiceName),
			semconv.DeploymentEnvironment(opts.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create resource: %w", op, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	if opts.Endpoint == "" {
		w := opts.Writer
		if w == nil {
			w = io.Discard
		}

		return stdouttrace.New(stdouttrace.WithWriter(w))
	}

	clientOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
	}

	return otlptracehttp.New(ctx, clientOpts...)
}
