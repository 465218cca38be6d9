package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// NewTracerProvider builds an OpenTelemetry TracerProvider that exports spans
// as JSON to w. Pass io.Discard in production once a real collector exporter
// is wired; stdout export is what this engine ships with out of the box so a
// single operator can watch Turn/Cycle spans without standing up infra.
func NewTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName("wayfarer-orchestrator")),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns the package tracer for orchestration spans.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/odvcencio/wayfarer/pkg/execution")
}
