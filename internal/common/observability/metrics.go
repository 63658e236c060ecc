// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	jobCounter      otelmetric.Int64Counter
	jobDuration     otelmetric.Float64Histogram
	sectionCounter  otelmetric.Int64Counter
	sectionDuration otelmetric.Float64Histogram
	generationCalls otelmetric.Int64Counter
}

type options struct {
	jaegerEndpoint string
	registerer     promclient.Registerer
}

type Option func(*options)

// WithJaeger exports spans to a Jaeger collector; an empty endpoint keeps tracing off.
func WithJaeger(endpoint string) Option {
	return func(o *options) { o.jaegerEndpoint = endpoint }
}

// WithRegisterer registers the Prometheus exporter somewhere other than the default registry.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

func New(serviceName string, opts ...Option) *Observability {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	obs := &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}

	var exporterOpts []prometheus.Option
	if o.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(o.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return obs
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(provider)
	obs.meterProvider = provider
	obs.meter = provider.Meter(serviceName)

	obs.jobCounter, _ = obs.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	obs.jobDuration, _ = obs.meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	obs.sectionCounter, _ = obs.meter.Int64Counter(
		"report.sections",
		otelmetric.WithDescription("Report sections processed by outcome"),
	)
	obs.sectionDuration, _ = obs.meter.Float64Histogram(
		"report.section.duration",
		otelmetric.WithDescription("Time to produce one report section"),
		otelmetric.WithUnit("ms"),
	)
	obs.generationCalls, _ = obs.meter.Int64Counter(
		"report.generation.calls",
		otelmetric.WithDescription("Chat-completion calls by classified result"),
	)

	if o.jaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(o.jaegerEndpoint)))
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
			return obs
		}
		obs.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(obs.tracerProvider)
		obs.tracer = obs.tracerProvider.Tracer(serviceName)
	}

	return obs
}

// Tracer returns the Jaeger-backed tracer, or a no-op one when tracing is off.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return o.tracer
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordSection(ctx context.Context, section, outcome string, d time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("section", section),
		attribute.String("outcome", outcome),
	)
	if o.sectionCounter != nil {
		o.sectionCounter.Add(ctx, 1, attrs)
	}
	if o.sectionDuration != nil {
		o.sectionDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordGeneration(ctx context.Context, result string) {
	if o.generationCalls != nil {
		o.generationCalls.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
