package planner

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	generativeAI "github.com/FACorreiaa/go-trip-fusion/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

// httpError maps a planning error to the status and the message shown to
// clients. Transport details stay in the logs.
func httpError(err error) (int, string) {
	var ferr *types.FieldError
	var terr *generativeAI.TransportError
	switch {
	case errors.As(err, &ferr):
		return http.StatusBadRequest, ferr.Error()
	case errors.Is(err, generativeAI.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, "Itinerary generation is not configured: Gemini API key not set"
	case errors.Is(err, ErrSuperseded):
		return http.StatusConflict, "Planning was superseded by a newer submission"
	case errors.Is(err, generativeAI.ErrEmptyResponse):
		return http.StatusBadGateway, "The itinerary service returned an empty response"
	case errors.As(err, &terr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "Failed to generate itinerary. Please try again."
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Planning failed: %v", err)
	}
}

// PublicMessage is the client-facing text for a planning error.
func PublicMessage(err error) string {
	_, msg := httpError(err)
	return msg
}
