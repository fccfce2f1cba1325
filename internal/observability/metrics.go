package observability

import (
	"context"
	"time"

	"lessonapp/internal/config"
	contextutils "lessonapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitMetrics initializes an OTLP-exporting MeterProvider
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %v", err)
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "unsupported otel protocol: %s", cfg.Protocol)
	}
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp %s metric exporter: %v", cfg.Protocol, err)
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	), nil
}

// GenerationMetrics records the outcome of candidate attempts and whole generations.
// Instruments come from the global MeterProvider, so they are no-ops when metrics are disabled.
type GenerationMetrics struct {
	attempts    otelmetric.Int64Counter
	generations otelmetric.Int64Counter
	degraded    otelmetric.Int64Counter
	latency     otelmetric.Float64Histogram
}

// NewGenerationMetrics creates the lesson plan instruments on the given meter provider (global when nil).
func NewGenerationMetrics(mp otelmetric.MeterProvider) *GenerationMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("lessonapp/generation")

	// Instrument creation only fails on invalid names; the returned instruments are usable no-ops then.
	attempts, _ := meter.Int64Counter("lesson_plan.attempts",
		otelmetric.WithDescription("Candidate model calls by model and outcome"))
	generations, _ := meter.Int64Counter("lesson_plan.generations",
		otelmetric.WithDescription("Completed generation cycles by outcome"))
	degraded, _ := meter.Int64Counter("lesson_plan.degraded_documents",
		otelmetric.WithDescription("Documents that needed repair or defaults"))
	latency, _ := meter.Float64Histogram("lesson_plan.generation.duration",
		otelmetric.WithDescription("End-to-end generation latency"),
		otelmetric.WithUnit("s"))

	return &GenerationMetrics{attempts: attempts, generations: generations, degraded: degraded, latency: latency}
}

// RecordAttempt counts one candidate call
func (m *GenerationMetrics) RecordAttempt(ctx context.Context, model, outcome string) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("ai.model", model),
		attribute.String("outcome", outcome),
	))
}

// RecordGeneration counts one completed cycle and its latency
func (m *GenerationMetrics) RecordGeneration(ctx context.Context, outcome string, degraded bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	m.generations.Add(ctx, 1, attrs)
	m.latency.Record(ctx, elapsed.Seconds(), attrs)
	if degraded {
		m.degraded.Add(ctx, 1)
	}
}
