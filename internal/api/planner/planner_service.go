package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-trip-fusion/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-trip-fusion/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-fusion/internal/api/itinerary"
	llmInteraction "github.com/FACorreiaa/go-trip-fusion/internal/api/llm_interaction"
	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

// FlightAugmenter enriches an itinerary with flight options. Failures come
// back as a diagnostic, never as an error.
type FlightAugmenter interface {
	Augment(ctx context.Context, it types.Itinerary, req types.TripRequest) (types.Itinerary, *types.Diagnostic)
}

// Observer is told about every state the pipeline enters.
type Observer func(state types.PlanState)

var _ Service = (*ServiceImpl)(nil)

// Service runs the planning pipeline once: prompt, generate, extract and
// the optional flight lookup.
type Service interface {
	Plan(ctx context.Context, sessionID string, req types.TripRequest, observe Observer) (*types.PlanResult, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	generator generativeAI.TextGenerator
	augmenter FlightAugmenter
	recorder  llmInteraction.Recorder
	metrics   *metrics.AppMetrics
	now       func() time.Time
}

func NewServiceImpl(
	generator generativeAI.TextGenerator,
	augmenter FlightAugmenter,
	recorder llmInteraction.Recorder,
	m *metrics.AppMetrics,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		generator: generator,
		augmenter: augmenter,
		recorder:  recorder,
		metrics:   m,
		now:       time.Now,
	}
}

func (s *ServiceImpl) Plan(ctx context.Context, sessionID string, req types.TripRequest, observe Observer) (*types.PlanResult, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Plan")
	defer span.End()
	if observe == nil {
		observe = func(types.PlanState) {}
	}

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid trip request")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("trip.source", req.Source),
		attribute.String("trip.destination", req.Destination),
		attribute.Bool("trip.include_flights", req.IncludeFlights),
	)
	l := s.logger.With(
		slog.String("method", "Plan"),
		slog.String("session_id", sessionID),
		slog.String("destination", req.Destination),
	)
	started := s.now()

	observe(types.PlanStateRequesting)
	prompt := itinerary.BuildTripPrompt(req)
	raw, err := s.generator.GenerateContent(ctx, prompt)
	latency := s.now().Sub(started)

	if err != nil && errors.Is(err, context.Canceled) {
		// superseded, reset or abandoned by the client; not a model failure
		s.metrics.RecordPlan(ctx, "cancelled", latency.Seconds())
		span.SetStatus(codes.Error, "itinerary generation cancelled")
		l.DebugContext(ctx, "Itinerary generation cancelled", slog.Any("error", err))
		return nil, fmt.Errorf("itinerary generation cancelled: %w", err)
	}
	if err != nil {
		if !errors.Is(err, generativeAI.ErrMissingAPIKey) {
			s.record(ctx, sessionID, req, prompt, "", latency, false, err)
		}
		s.metrics.GenerationErrorsTotal.Add(ctx, 1)
		s.metrics.RecordPlan(ctx, string(types.PlanStateFailed), latency.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "itinerary generation failed")
		l.ErrorContext(ctx, "Itinerary generation failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to generate itinerary: %w", err)
	}

	extracted := itinerary.Extract(raw, req)
	s.record(ctx, sessionID, req, prompt, raw, latency, extracted.Fallback, nil)

	result := &types.PlanResult{
		Itinerary:   extracted.Itinerary,
		Placeholder: extracted.Fallback,
	}
	if extracted.Fallback {
		s.metrics.ExtractionFallbacksTotal.Add(ctx, 1)
		l.WarnContext(ctx, "Model response unusable, serving placeholder itinerary", slog.Any("reason", extracted.Reason))
		result.Diagnostics = append(result.Diagnostics, types.Diagnostic{
			Kind:    types.DiagnosticExtraction,
			Message: extracted.Reason.Error(),
		})
	}

	if req.IncludeFlights {
		observe(types.PlanStateAugmenting)
		augmented, diag := s.augmenter.Augment(ctx, result.Itinerary, req)
		result.Itinerary = augmented
		if diag != nil {
			result.Diagnostics = append(result.Diagnostics, *diag)
		}
	}
	result.FlightsAttached = result.Itinerary.HasFlights()
	result.GeneratedAt = s.now().UTC()

	outcome := "ready"
	if result.Placeholder {
		outcome = "placeholder"
	}
	s.metrics.RecordPlan(ctx, outcome, s.now().Sub(started).Seconds())
	span.SetAttributes(
		attribute.Int("itinerary.days", len(result.Itinerary.Days)),
		attribute.Bool("itinerary.placeholder", result.Placeholder),
		attribute.Bool("itinerary.flights_attached", result.FlightsAttached),
	)
	l.InfoContext(ctx, "Itinerary planned",
		slog.Int("days", len(result.Itinerary.Days)),
		slog.Bool("placeholder", result.Placeholder),
		slog.Bool("flights", result.FlightsAttached),
		slog.Duration("latency", latency))
	return result, nil
}

func (s *ServiceImpl) record(ctx context.Context, sessionID string, req types.TripRequest, prompt, raw string,
	latency time.Duration, fallback bool, genErr error) {
	payload, _ := json.Marshal(req)
	interaction := types.LlmInteraction{
		SessionID:      sessionID,
		Prompt:         prompt,
		RequestPayload: payload,
		ResponseText:   raw,
		ModelUsed:      s.generator.Model(),
		LatencyMs:      int(latency.Milliseconds()),
		StatusCode:     http.StatusOK,
		Fallback:       fallback,
	}
	if genErr != nil {
		interaction.StatusCode = 0
		var terr *generativeAI.TransportError
		if errors.As(genErr, &terr) {
			interaction.StatusCode = terr.StatusCode
		}
		interaction.ErrorMessage = genErr.Error()
	}
	s.recorder.Record(ctx, interaction)
}
