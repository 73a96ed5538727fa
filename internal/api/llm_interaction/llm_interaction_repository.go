package llmInteraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

var (
	_ Repository = (*PostgresLlmInteractionRepo)(nil)
	_ Repository = NoopRepo{}
)

type Repository interface {
	SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error
}

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresLlmInteractionRepo struct {
	logger *slog.Logger
	db     DBTX
}

func NewPostgresLlmInteractionRepo(db DBTX, logger *slog.Logger) *PostgresLlmInteractionRepo {
	return &PostgresLlmInteractionRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresLlmInteractionRepo) SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error {
	query := `
        INSERT INTO llm_interactions (
            id, session_id, prompt, request_payload, response_text, model_used,
            latency_ms, status_code, fallback, error_message, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.db.Exec(ctx, query,
		interaction.ID, nullIfEmpty(interaction.SessionID), interaction.Prompt,
		interaction.RequestPayload, interaction.ResponseText, interaction.ModelUsed,
		interaction.LatencyMs, interaction.StatusCode, interaction.Fallback,
		nullIfEmpty(interaction.ErrorMessage), interaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save llm interaction: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NoopRepo discards interactions when no database is configured.
type NoopRepo struct{}

func (NoopRepo) SaveInteraction(context.Context, types.LlmInteraction) error { return nil }
