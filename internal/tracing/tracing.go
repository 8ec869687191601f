// Package tracing wires up OpenTelemetry tracing for the gateway: a
// stdout-exporting TracerProvider (pretty-printed in dev mode), and the shutdown hook the
// CLI runs on exit. Each instrumented package (catalog, router) pulls its
// own Tracer via otel.Tracer, the way the pack's reflow-gateway MCP client
// does, rather than threading a *trace.Tracer through every constructor.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies this process in exported spans.
const ServiceName = "mcp-gateway"

// Init installs a global TracerProvider. Pretty-printed stdout export is
// meant for local/dev use; production deployments would swap in an OTLP
// exporter without touching any instrumented call site, since callers only
// ever depend on otel.Tracer.
func Init(ctx context.Context, version string, prettyPrint bool) (shutdown func(context.Context) error, err error) {
	opts := []stdouttrace.Option{}
	if prettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
