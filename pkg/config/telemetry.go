package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/version"
)

// StdoutEndpoint as telemetry endpoint prints traces and metrics to stdout
const StdoutEndpoint = "stdout"

const serviceName = "owlracer-agent"

type Telemetry struct {
	traceProvider *trace.TracerProvider
	meterProvider *metric.MeterProvider
}

// SetupTelemetry installs global trace and meter providers exporting to
// endpoint.
func SetupTelemetry(ctx context.Context, endpoint string) (*Telemetry, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version.Version),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, err
	}
	traceExporter, metricExporter, err := newExporters(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	ret := &Telemetry{
		traceProvider: trace.NewTracerProvider(
			trace.WithBatcher(traceExporter),
			trace.WithResource(res),
		),
		meterProvider: metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(metricExporter,
				metric.WithInterval(15*time.Second))),
			metric.WithResource(res),
		),
	}
	otel.SetTracerProvider(ret.traceProvider)
	otel.SetMeterProvider(ret.meterProvider)
	return ret, nil
}

//nolint:whitespace // editor/linter issue
func newExporters(ctx context.Context, endpoint string) (
	trace.SpanExporter, metric.Exporter, error,
) {
	if endpoint == StdoutEndpoint {
		te, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, err
		}
		me, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, err
		}
		return te, me, nil
	}
	te, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	me, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	return te, me, nil
}

// Shutdown flushes pending data
func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := errors.Join(
		t.traceProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx),
	); err != nil {
		log.Warn("error shutting down telemetry", log.ErrorField(err))
	}
}
