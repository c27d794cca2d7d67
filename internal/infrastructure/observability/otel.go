package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kosherdirectory/discovery"

// Metrics holds the engine's instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ScheduleCacheHits   metric.Int64Counter
	ScheduleCacheMisses metric.Int64Counter
	HoursParseFailures  metric.Int64Counter
	TimezoneFallbacks   metric.Int64Counter
	FilterDuration      metric.Float64Histogram
	FilterResultCount   metric.Int64Histogram
}

// Setup initializes OpenTelemetry tracing, metrics export and runtime
// instrumentation against an OTLP/gRPC collector.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(15 * time.Second)); err != nil {
		_ = tracerProvider.Shutdown(ctx)
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}
	return shutdown, nil
}

// InitMetrics creates the engine instruments on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	hits, err := meter.Int64Counter(
		"schedule_cache.hit.count",
		metric.WithDescription("Number of parsed-hours cache hits"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"schedule_cache.miss.count",
		metric.WithDescription("Number of parsed-hours cache misses, including stale entries"),
	)
	if err != nil {
		return nil, err
	}

	parseFailures, err := meter.Int64Counter(
		"hours.parse_failure.count",
		metric.WithDescription("Number of hours inputs no pattern could parse"),
	)
	if err != nil {
		return nil, err
	}

	tzFallbacks, err := meter.Int64Counter(
		"timezone.fallback.count",
		metric.WithDescription("Number of restaurants whose timezone defaulted to UTC"),
	)
	if err != nil {
		return nil, err
	}

	filterDuration, err := meter.Float64Histogram(
		"filter.duration",
		metric.WithDescription("Filter pipeline duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	resultCount, err := meter.Int64Histogram(
		"filter.result.count",
		metric.WithDescription("Number of restaurants returned per filter run"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ScheduleCacheHits:   hits,
		ScheduleCacheMisses: misses,
		HoursParseFailures:  parseFailures,
		TimezoneFallbacks:   tzFallbacks,
		FilterDuration:      filterDuration,
		FilterResultCount:   resultCount,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// RecordCacheHit records a schedule cache hit
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.ScheduleCacheHits.Add(ctx, 1)
}

// RecordCacheMiss records a schedule cache miss; reason is "absent" or "stale"
func (m *Metrics) RecordCacheMiss(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.ScheduleCacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordParseFailure records an hours input that could not be parsed
func (m *Metrics) RecordParseFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.HoursParseFailures.Add(ctx, 1)
}

// RecordTimezoneFallback records a restaurant that fell back to UTC
func (m *Metrics) RecordTimezoneFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.TimezoneFallbacks.Add(ctx, 1)
}

// RecordFilter records one filter pipeline run
func (m *Metrics) RecordFilter(ctx context.Context, duration time.Duration, results int, openNow, nearMe bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Bool("filter.open_now", openNow),
		attribute.Bool("filter.near_me", nearMe),
	)
	m.FilterDuration.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
	m.FilterResultCount.Record(ctx, int64(results), attrs)
}
