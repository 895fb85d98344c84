// Package tracing инициализация OpenTelemetry (OTLP/HTTP экспорт)
package tracing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName имя tracer'а сервиса
const TracerName = "rental"

// ShutdownFunc останавливает экспорт спанов
type ShutdownFunc func(ctx context.Context) error

var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Config параметры трассировки
type Config struct {
	ServiceName string
	Endpoint    string  // host:port или URL OTLP коллектора
	SampleRatio float64 // 0..1, 0 трактуется как 1
}

// Init настраивает глобальный TracerProvider.
// Если Endpoint пустой, трассировка выключена: спаны создаются no-op tracer'ом.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagator)

	if strings.TrimSpace(cfg.Endpoint) == "" {
		return func(context.Context) error { return nil }, nil
	}

	endpoint, err := parseOTLPEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid otlp endpoint %q: %w", cfg.Endpoint, err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		// Конфликт schema URL не критичен, берем ресурс только с именем сервиса
		res = resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer возвращает tracer сервиса из глобального провайдера
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Propagator W3C trace context + baggage
func Propagator() propagation.TextMapPropagator {
	return propagator
}

func sampleRatio(r float64) float64 {
	if r <= 0 || r > 1 {
		return 1
	}
	return r
}

func parseOTLPEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("missing host")
	}
	port := u.Port()
	if port == "" {
		port = "4318"
	}
	return host + ":" + port, nil
}
