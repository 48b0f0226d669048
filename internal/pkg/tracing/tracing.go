// Package tracing настраивает OpenTelemetry трассировку.
//
// Setup регистрирует глобальный TracerProvider и W3C propagators.
// Если трассировка выключена, глобальный provider остаётся no-op,
// и otel.Tracer(...) в сервисах ничего не стоит.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config - настройки трассировки.
type Config struct {
	Enabled     bool
	ServiceName string
	Version     string
	Environment string
	// Endpoint OTLP/HTTP коллектора, host:port (e.g., "otel-collector:4318")
	Endpoint string
	Insecure bool
	// SampleRatio - доля трассируемых запросов (0..1]
	SampleRatio float64
}

// ShutdownFunc сбрасывает буфер спанов и останавливает exporter.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup создаёт TracerProvider с OTLP/HTTP exporter и делает его глобальным.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := NewProvider(cfg, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(Propagator())

	return tp.Shutdown, nil
}

// NewProvider собирает TracerProvider с ресурсом сервиса и sampler из cfg.
// Тесты передают sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()).
func NewProvider(cfg Config, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(Resource(cfg)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}, opts...)

	return sdktrace.NewTracerProvider(opts...)
}

// Resource описывает сервис в терминах OpenTelemetry.
func Resource(cfg Config) *resource.Resource {
	name := cfg.ServiceName
	if name == "" {
		name = "catalog"
	}
	return resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	)
}

// Propagator - W3C TraceContext + Baggage.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}
