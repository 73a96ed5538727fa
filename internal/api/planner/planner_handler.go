package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-fusion/internal/api"
	"github.com/FACorreiaa/go-trip-fusion/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

type PlannerHandler struct {
	logger   *slog.Logger
	service  Service
	sessions *Sessions
	shares   *ShareLinks
}

func NewPlannerHandler(service Service, sessions *Sessions, shares *ShareLinks, logger *slog.Logger) *PlannerHandler {
	return &PlannerHandler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		shares:   shares,
	}
}

func startSpan(r *http.Request, name, route string) (*http.Request, trace.Span) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), name, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	return r.WithContext(ctx), span
}

func (h *PlannerHandler) writePlanError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	status, msg := httpError(err)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "Planning failed", slog.Any("error", err), slog.Int("status", status))
	} else {
		l.WarnContext(r.Context(), "Planning rejected", slog.Any("error", err), slog.Int("status", status))
	}
	api.ErrorResponse(w, r, status, msg)
}

// CreatePlan godoc
// @Summary      Plan a Trip
// @Description  Runs the planning pipeline once without a session and returns the itinerary.
// @Tags         Plans
// @Accept       json
// @Produce      json
// @Param        trip body types.TripRequest true "Trip Parameters"
// @Success      200 {object} types.PlanResult "Planned Itinerary"
// @Failure      400 {object} api.Response "Invalid Trip Request"
// @Failure      429 {object} api.Response "Too Many Requests"
// @Failure      502 {object} api.Response "Itinerary Service Failed"
// @Failure      503 {object} api.Response "Itinerary Service Not Configured"
// @Router       /plans [post]
func (h *PlannerHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "CreatePlan", "/api/v1/plans")
	defer span.End()
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreatePlan"))

	var req types.TripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode trip request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Plan(ctx, "", req, nil)
	if err != nil {
		span.RecordError(err)
		h.writePlanError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// CreateSession godoc
// @Summary      Create Planning Session
// @Description  Starts an idle planning session.
// @Tags         Sessions
// @Produce      json
// @Success      201 {object} api.SessionResponse "Session Created"
// @Router       /sessions [post]
func (h *PlannerHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "CreateSession", "/api/v1/sessions")
	defer span.End()

	o := h.sessions.Create()
	span.SetAttributes(attribute.String("session.id", o.ID()))
	h.logger.DebugContext(r.Context(), "Planning session created", slog.String("session_id", o.ID()))
	api.WriteJSONResponse(w, r, http.StatusCreated, api.SessionResponse{
		ID:    o.ID(),
		State: string(types.PlanStateIdle),
	})
}

func (h *PlannerHandler) session(w http.ResponseWriter, r *http.Request) (*Orchestrator, bool) {
	id := chi.URLParam(r, "sessionID")
	o, err := h.sessions.Get(id)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusNotFound, fmt.Sprintf("Planning session %q not found", id))
		return nil, false
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("session.id", id))
	return o, true
}

// GetSession godoc
// @Summary      Get Planning Session
// @Description  Returns the current state, request and result of a planning session.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      200 {object} types.PlanSnapshot "Session Snapshot"
// @Failure      404 {object} api.Response "Session Not Found"
// @Router       /sessions/{sessionID} [get]
func (h *PlannerHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "GetSession", "/api/v1/sessions/{sessionID}")
	defer span.End()

	o, ok := h.session(w, r)
	if !ok {
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, o.Snapshot())
}

// SubmitPlan godoc
// @Summary      Submit Trip to Session
// @Description  Starts planning in the session and waits for the outcome. A newer submission supersedes this one.
// @Description  Clients that give up early can poll GetSession.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Param        trip body types.TripRequest true "Trip Parameters"
// @Success      200 {object} types.PlanResult "Planned Itinerary"
// @Failure      400 {object} api.Response "Invalid Trip Request"
// @Failure      404 {object} api.Response "Session Not Found"
// @Failure      409 {object} api.Response "Superseded By A Newer Submission"
// @Failure      502 {object} api.Response "Itinerary Service Failed"
// @Failure      503 {object} api.Response "Itinerary Service Not Configured"
// @Failure      504 {object} api.Response "Still In Progress"
// @Router       /sessions/{sessionID}/plan [post]
func (h *PlannerHandler) SubmitPlan(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "SubmitPlan", "/api/v1/sessions/{sessionID}/plan")
	defer span.End()
	ctx := r.Context()

	o, ok := h.session(w, r)
	if !ok {
		return
	}
	l := h.logger.With(slog.String("handler", "SubmitPlan"), slog.String("session_id", o.ID()))

	var req types.TripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode trip request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	outcomes, err := o.Submit(req)
	if err != nil {
		h.writePlanError(w, r, l, err)
		return
	}

	select {
	case out := <-outcomes:
		span.SetAttributes(attribute.Int64("plan.sequence", int64(out.Sequence)))
		if out.Err != nil {
			span.RecordError(out.Err)
			h.writePlanError(w, r, l, out.Err)
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, out.Result)
	case <-ctx.Done():
		l.WarnContext(ctx, "Client stopped waiting for planning outcome", slog.Any("error", ctx.Err()))
		api.ErrorResponse(w, r, http.StatusGatewayTimeout, "Planning is still in progress; poll the session for the result")
	}
}

// ResetSession godoc
// @Summary      Reset Planning Session
// @Description  Cancels any in-flight planning and returns the session to idle.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      200 {object} types.PlanSnapshot "Session Snapshot"
// @Failure      404 {object} api.Response "Session Not Found"
// @Router       /sessions/{sessionID}/reset [post]
func (h *PlannerHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "ResetSession", "/api/v1/sessions/{sessionID}/reset")
	defer span.End()

	o, ok := h.session(w, r)
	if !ok {
		return
	}
	o.Reset()
	api.WriteJSONResponse(w, r, http.StatusOK, o.Snapshot())
}

func (h *PlannerHandler) readyItinerary(w http.ResponseWriter, r *http.Request, o *Orchestrator) (types.Itinerary, bool) {
	snap := o.Snapshot()
	if snap.State != types.PlanStateReady || snap.Result == nil {
		api.ErrorResponse(w, r, http.StatusConflict, fmt.Sprintf("No itinerary to share: session is %s", snap.State))
		return types.Itinerary{}, false
	}
	return snap.Result.Itinerary, true
}

// ShareItinerary godoc
// @Summary      Share Itinerary
// @Description  Renders the session's ready itinerary as plain text, iCalendar or PDF.
// @Tags         Share
// @Produce      plain
// @Produce      octet-stream
// @Param        sessionID path string true "Session ID"
// @Param        format query string false "text, ics or pdf" default(text)
// @Success      200 {string} string "Encoded Itinerary"
// @Failure      400 {object} api.Response "Unknown Format"
// @Failure      404 {object} api.Response "Session Not Found"
// @Failure      409 {object} api.Response "No Ready Itinerary"
// @Router       /sessions/{sessionID}/share [get]
func (h *PlannerHandler) ShareItinerary(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "ShareItinerary", "/api/v1/sessions/{sessionID}/share")
	defer span.End()

	format, err := itinerary.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	it, ok := h.readyItinerary(w, r, o)
	if !ok {
		return
	}
	h.writeShare(w, r, it, format, itinerary.ShareOptions{})
}

// CreateShareLink godoc
// @Summary      Create Share Link
// @Description  Signs a link to a copy of the session's ready itinerary.
// @Tags         Share
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      201 {object} api.ShareLinkResponse "Share Link"
// @Failure      404 {object} api.Response "Session Not Found"
// @Failure      409 {object} api.Response "No Ready Itinerary"
// @Failure      503 {object} api.Response "Share Links Not Configured"
// @Router       /sessions/{sessionID}/share-links [post]
func (h *PlannerHandler) CreateShareLink(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "CreateShareLink", "/api/v1/sessions/{sessionID}/share-links")
	defer span.End()

	o, ok := h.session(w, r)
	if !ok {
		return
	}
	it, ok := h.readyItinerary(w, r, o)
	if !ok {
		return
	}

	link, err := h.shares.Create(it)
	if err != nil {
		if errors.Is(err, ErrShareLinksDisabled) {
			api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Share links are not configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to create share link", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create share link")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, api.ShareLinkResponse(link))
}

// GetSharedItinerary godoc
// @Summary      Get Shared Itinerary
// @Description  Serves the itinerary behind a share token, as JSON by default or in a share format.
// @Tags         Share
// @Produce      json
// @Param        token path string true "Share Token"
// @Param        format query string false "json, text, ics or pdf" default(json)
// @Success      200 {object} types.Itinerary "Shared Itinerary"
// @Failure      400 {object} api.Response "Unknown Format"
// @Failure      404 {object} api.Response "Invalid Or Expired Link"
// @Failure      503 {object} api.Response "Share Links Not Configured"
// @Router       /shared/{token} [get]
func (h *PlannerHandler) GetSharedItinerary(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "GetSharedItinerary", "/api/v1/shared/{token}")
	defer span.End()

	token := chi.URLParam(r, "token")
	it, err := h.shares.Resolve(token)
	if err != nil {
		if errors.Is(err, ErrShareLinksDisabled) {
			api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Share links are not configured")
			return
		}
		h.logger.InfoContext(r.Context(), "Rejected share token", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusNotFound, "Share link is invalid or expired")
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("format"))
	if raw == "" || strings.EqualFold(raw, "json") {
		api.WriteJSONResponse(w, r, http.StatusOK, it)
		return
	}
	format, err := itinerary.ParseFormat(raw)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.writeShare(w, r, it, format, itinerary.ShareOptions{ShareURL: h.shares.URL(token)})
}

func (h *PlannerHandler) writeShare(w http.ResponseWriter, r *http.Request, it types.Itinerary, format itinerary.Format, opts itinerary.ShareOptions) {
	body, err := itinerary.Encode(it, format, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to encode itinerary", slog.String("format", string(format)), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to encode itinerary")
		return
	}
	if format == itinerary.FormatText {
		w.Header().Set("Content-Type", format.ContentType())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}
	api.WriteAttachment(w, r, format.ContentType(), "itinerary."+format.Extension(), body)
}
