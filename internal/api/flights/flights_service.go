package flights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-trip-fusion/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

// sharedLookupTimeout bounds an upstream search once no caller's context
// governs it.
const sharedLookupTimeout = 45 * time.Second

var _ Service = (*ServiceImpl)(nil)

// Service is the cached flight search used by the augmenter.
type Service interface {
	Search(ctx context.Context, q types.FlightQuery) ([]types.FlightOption, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	searcher Searcher
	cache    Cache
	metrics  *metrics.AppMetrics
	group    singleflight.Group
}

func NewServiceImpl(searcher Searcher, c Cache, m *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		searcher: searcher,
		cache:    c,
		metrics:  m,
	}
}

// Search answers from cache when possible. Concurrent identical misses share
// one upstream call.
func (s *ServiceImpl) Search(ctx context.Context, q types.FlightQuery) ([]types.FlightOption, error) {
	ctx, span := otel.Tracer("FlightService").Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("flights.source", q.Source),
		attribute.String("flights.destination", q.Destination),
		attribute.String("flights.outbound_date", q.OutboundDate),
	)

	l := s.logger.With(slog.String("method", "Search"), slog.String("route", q.Source+"-"+q.Destination))
	key := CacheKey(q)

	if options, ok := s.fromCache(ctx, key, l); ok {
		span.SetAttributes(attribute.Bool("flights.cache_hit", true))
		return options, nil
	}

	// The upstream call is shared by every caller with the same key, so it
	// must not die with whichever caller happened to start it.
	ch := s.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		options, err := s.searcher.SearchFlights(lookupCtx, q)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(lookupCtx, key, options); err != nil {
			l.WarnContext(lookupCtx, "Failed to cache flight options", slog.Any("error", err))
		}
		return options, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "flight search abandoned")
		l.DebugContext(ctx, "Stopped waiting for flight search", slog.Any("error", ctx.Err()))
		return nil, fmt.Errorf("flight search failed: %w", ctx.Err())
	}
	if res.Err != nil {
		s.metrics.FlightLookupErrorsTotal.Add(ctx, 1)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "flight search failed")
		return nil, fmt.Errorf("flight search failed: %w", res.Err)
	}

	options := res.Val.([]types.FlightOption)
	l.DebugContext(ctx, "Flight search completed", slog.Int("options", len(options)), slog.Bool("shared", res.Shared))
	span.SetAttributes(attribute.Int("flights.options", len(options)))
	return options, nil
}

func (s *ServiceImpl) fromCache(ctx context.Context, key string, l *slog.Logger) ([]types.FlightOption, bool) {
	options, found, err := s.cache.Get(ctx, key)
	if err != nil {
		l.WarnContext(ctx, "Flight cache lookup failed", slog.Any("error", err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	s.metrics.FlightCacheHitsTotal.Add(ctx, 1)
	return options, true
}
