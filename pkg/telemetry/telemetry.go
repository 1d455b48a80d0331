// Package telemetry configures OpenTelemetry tracing for the resolution
// pipeline.
package telemetry

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
)

// ServiceName identifies answerdesk spans.
const ServiceName = "answerdesk"

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

type Config struct {
	// Enabled installs a tracer provider. When false, the global no-op
	// provider is left in place.
	Enabled bool

	// Writer receives exported spans. Defaults to stderr.
	Writer io.Writer

	// PrettyPrint indents exported spans.
	PrettyPrint bool
}

// Setup installs a global tracer provider exporting spans as JSON to
// c.Writer. The returned function must be called on shutdown to flush
// pending spans.
func Setup(c Config, logger *zap.Logger) (ShutdownFunc, error) {
	if !c.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	w := c.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if c.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	if logger != nil {
		logger.Info("tracing enabled", zap.String("service", ServiceName))
	}

	return tp.Shutdown, nil
}
