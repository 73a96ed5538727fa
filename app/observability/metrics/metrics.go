package metrics

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	PlanRequestsTotal        metric.Int64Counter
	PlanDurationSeconds      metric.Float64Histogram
	ExtractionFallbacksTotal metric.Int64Counter
	GenerationErrorsTotal    metric.Int64Counter
	FlightLookupErrorsTotal  metric.Int64Counter
	FlightCacheHitsTotal     metric.Int64Counter
	InteractionErrorsTotal   metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics(serviceName string) {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter(serviceName))
		if err != nil {
			log.Fatalf("Metrics: %v", err)
		}
		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

// Noop returns instruments that record nothing, for tests and tools.
func Noop() *AppMetrics {
	m, _ := New(noop.NewMeterProvider().Meter("noop"))
	return m
}

func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	if m.PlanRequestsTotal, err = meter.Int64Counter(
		"plan_requests_total",
		metric.WithDescription("Total number of planning operations by outcome"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create plan_requests_total: %w", err)
	}

	if m.PlanDurationSeconds, err = meter.Float64Histogram(
		"plan_duration_seconds",
		metric.WithDescription("Duration of planning operations in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create plan_duration_seconds: %w", err)
	}

	if m.ExtractionFallbacksTotal, err = meter.Int64Counter(
		"plan_extraction_fallbacks_total",
		metric.WithDescription("Generative responses replaced by the placeholder itinerary"),
		metric.WithUnit("{response}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create plan_extraction_fallbacks_total: %w", err)
	}

	if m.GenerationErrorsTotal, err = meter.Int64Counter(
		"plan_generation_errors_total",
		metric.WithDescription("Failed calls to the generative text endpoint"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create plan_generation_errors_total: %w", err)
	}

	if m.FlightLookupErrorsTotal, err = meter.Int64Counter(
		"flight_lookup_errors_total",
		metric.WithDescription("Failed flight searches"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create flight_lookup_errors_total: %w", err)
	}

	if m.FlightCacheHitsTotal, err = meter.Int64Counter(
		"flight_cache_hits_total",
		metric.WithDescription("Flight searches answered from cache"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create flight_cache_hits_total: %w", err)
	}

	if m.InteractionErrorsTotal, err = meter.Int64Counter(
		"llm_interaction_record_errors_total",
		metric.WithDescription("Failures writing the generative interaction log"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm_interaction_record_errors_total: %w", err)
	}

	return m, nil
}

// RecordPlan counts one finished planning operation.
func (m *AppMetrics) RecordPlan(ctx context.Context, outcome string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.PlanRequestsTotal.Add(ctx, 1, attrs)
	m.PlanDurationSeconds.Record(ctx, seconds, attrs)
}
