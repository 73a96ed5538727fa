package llmInteraction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-trip-fusion/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

const recordTimeout = 5 * time.Second

var _ Recorder = (*ServiceImpl)(nil)

// Recorder keeps an audit trail of generative calls. Recording is best
// effort and never reports an error to the caller.
type Recorder interface {
	Record(ctx context.Context, interaction types.LlmInteraction)
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    Repository
	metrics *metrics.AppMetrics
}

func NewServiceImpl(repo Repository, m *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		repo:    repo,
		metrics: m,
	}
}

func (s *ServiceImpl) Record(ctx context.Context, interaction types.LlmInteraction) {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now().UTC()
	}

	// Detached from cancellation so a finished request still gets logged.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.repo.SaveInteraction(ctx, interaction); err != nil {
		s.metrics.InteractionErrorsTotal.Add(ctx, 1)
		s.logger.WarnContext(ctx, "Failed to record llm interaction",
			slog.String("interaction_id", interaction.ID.String()),
			slog.Any("error", err))
		return
	}
	s.logger.DebugContext(ctx, "Recorded llm interaction",
		slog.String("interaction_id", interaction.ID.String()),
		slog.Int("latency_ms", interaction.LatencyMs))
}
