package flights

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

// Augmenter attaches flight options to an itinerary. It never fails: any
// problem is returned as a diagnostic next to the unchanged itinerary.
type Augmenter struct {
	logger  *slog.Logger
	service Service
}

func NewAugmenter(service Service, logger *slog.Logger) *Augmenter {
	return &Augmenter{logger: logger, service: service}
}

// Augment looks up one-way flights from req.Source to req.Destination on
// req.StartDate. On success the options are attached to a copy of it.
func (a *Augmenter) Augment(ctx context.Context, it types.Itinerary, req types.TripRequest) (types.Itinerary, *types.Diagnostic) {
	ctx, span := otel.Tracer("FlightAugmenter").Start(ctx, "Augment")
	defer span.End()

	date, err := types.NormalizeDate(req.StartDate)
	if err != nil {
		return it, a.diagnose(ctx, fmt.Errorf("invalid departure date: %w", err))
	}

	options, err := a.service.Search(ctx, types.FlightQuery{
		Source:       req.Source,
		Destination:  req.Destination,
		OutboundDate: date,
	})
	if err != nil {
		return it, a.diagnose(ctx, err)
	}
	if len(options) == 0 {
		return it, a.diagnose(ctx, fmt.Errorf("no flights found from %s to %s on %s", req.Source, req.Destination, date))
	}

	out := it.Clone()
	out.Flights = options
	span.SetAttributes(attribute.Int("flights.attached", len(options)))
	return out, nil
}

func (a *Augmenter) diagnose(ctx context.Context, err error) *types.Diagnostic {
	a.logger.WarnContext(ctx, "Flight augmentation skipped", slog.Any("error", err))
	return &types.Diagnostic{Kind: types.DiagnosticFlights, Message: err.Error()}
}
