package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"voterlookup/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const ConfigName = "telemetry.json5"

// Endpoint is an OTLP collector. Protocol is "grpc" or "http", empty means
// http.
type Endpoint struct {
	URL      string            `json:"url"`
	Protocol string            `json:"protocol"`
	Headers  map[string]string `json:"headers"`
}

func (e *Endpoint) enabled() bool {
	return e != nil && e.URL != ""
}

func (e *Endpoint) grpc() (bool, error) {
	switch e.Protocol {
	case "", "http":
		return false, nil
	case "grpc":
		return true, nil
	}
	return false, fmt.Errorf("unknown otlp protocol %q", e.Protocol)
}

// Config is the content of telemetry.json5. A signal without an endpoint
// keeps otel's no-op provider.
type Config struct {
	Traces  *Endpoint `json:"traces"`
	Metrics *Endpoint `json:"metrics"`
	// MetricIntervalSeconds defaults to 10. A run flushes on Shutdown anyway.
	MetricIntervalSeconds int `json:"metric_interval_seconds"`
}

// Telemetry holds the providers Setup installed, either may be nil.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// Shutdown flushes and stops the installed providers.
func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// SetupFromEnv looks for telemetry.json5 from the working directory up. No
// file means no telemetry, not an error.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config](ConfigName)
	if errors.Is(err, os.ErrNotExist) {
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	var t Telemetry
	if !config.Traces.enabled() && !config.Metrics.enabled() {
		return t, nil
	}

	for _, e := range []*Endpoint{config.Traces, config.Metrics} {
		if !e.enabled() {
			continue
		}
		if _, err := e.grpc(); err != nil {
			return t, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return t, err
	}

	if config.Traces.enabled() {
		exporter, err := traceExporter(ctx, config.Traces)
		if err != nil {
			return t, fmt.Errorf("trace exporter: %w", err)
		}
		t.TracerProvider = trace.NewTracerProvider(trace.WithBatcher(exporter), trace.WithResource(r))
		otel.SetTracerProvider(t.TracerProvider)
	}

	if config.Metrics.enabled() {
		exporter, err := metricExporter(ctx, config.Metrics)
		if err != nil {
			return t, fmt.Errorf("metric exporter: %w", err)
		}
		interval := 10 * time.Second
		if config.MetricIntervalSeconds > 0 {
			interval = time.Duration(config.MetricIntervalSeconds) * time.Second
		}
		t.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
			metric.WithResource(r),
		)
		otel.SetMeterProvider(t.MeterProvider)
	}
	return t, nil
}

func traceExporter(ctx context.Context, e *Endpoint) (trace.SpanExporter, error) {
	grpc, err := e.grpc()
	if err != nil {
		return nil, err
	}
	if grpc {
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(e.URL), otlptracegrpc.WithHeaders(e.Headers))
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(e.URL), otlptracehttp.WithHeaders(e.Headers))
}

func metricExporter(ctx context.Context, e *Endpoint) (metric.Exporter, error) {
	grpc, err := e.grpc()
	if err != nil {
		return nil, err
	}
	if grpc {
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(e.URL), otlpmetricgrpc.WithHeaders(e.Headers))
	}
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(e.URL), otlpmetrichttp.WithHeaders(e.Headers))
}
