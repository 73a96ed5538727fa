package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LlmInteraction is one recorded call to the generative model.
type LlmInteraction struct {
	ID             uuid.UUID       `json:"id"`
	SessionID      string          `json:"session_id,omitempty"`
	Prompt         string          `json:"prompt"`
	RequestPayload json.RawMessage `json:"request_payload"`
	ResponseText   string          `json:"response_text"`
	ModelUsed      string          `json:"model_used"`
	LatencyMs      int             `json:"latency_ms"`
	StatusCode     int             `json:"status_code"`
	Fallback       bool            `json:"fallback"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
