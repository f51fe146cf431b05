package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"coffee-eda/internal/buildinfo"
	"coffee-eda/internal/config"
)

const (
	ServiceName = "coffee-eda"
	TracerName  = "coffee-eda"
)

// InitTracing installs a global tracer provider. With the "none" exporter
// spans are still created, so span-aware code paths behave the same, but
// nothing is exported. The returned function flushes and stops the provider.
func InitTracing(cfg config.TracingConfig, w io.Writer) (trace.Tracer, func(context.Context) error, error) {
	res := resource.NewWithAttributes("",
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", buildinfo.Version),
	)

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	switch cfg.Exporter {
	case "stdout":
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
	default:
		return nil, nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp.Tracer(TracerName, trace.WithInstrumentationVersion(buildinfo.Version)), tp.Shutdown, nil
}

// Tracer returns the tracer of the global provider, a no-op until InitTracing runs.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
