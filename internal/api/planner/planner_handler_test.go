package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-fusion/internal/api"
	generativeAI "github.com/FACorreiaa/go-trip-fusion/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

func newTestRouter(h *PlannerHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/api/v1/plans", h.CreatePlan)
	r.Post("/api/v1/sessions", h.CreateSession)
	r.Get("/api/v1/sessions/{sessionID}", h.GetSession)
	r.Post("/api/v1/sessions/{sessionID}/plan", h.SubmitPlan)
	r.Post("/api/v1/sessions/{sessionID}/reset", h.ResetSession)
	r.Get("/api/v1/sessions/{sessionID}/share", h.ShareItinerary)
	r.Post("/api/v1/sessions/{sessionID}/share-links", h.CreateShareLink)
	r.Get("/api/v1/shared/{token}", h.GetSharedItinerary)
	return r
}

func newTestHandler(gen generativeAI.TextGenerator, signingKey string) (*PlannerHandler, chi.Router) {
	svc, _ := newService(gen, &identityAugmenter{})
	sessions := NewSessions(svc, time.Minute, time.Hour, discardLogger())
	shares := NewShareLinks(signingKey, time.Hour, "http://trips.test")
	h := NewPlannerHandler(svc, sessions, shares, discardLogger())
	return h, newTestRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

func TestCreatePlan(t *testing.T) {
	tests := []struct {
		name       string
		genResp    string
		genErr     error
		body       any
		wantStatus int
		wantError  string
	}{
		{name: "ready", genResp: nycParisJSON, body: nycParisRequest(), wantStatus: http.StatusOK},
		{name: "missing field", body: func() types.TripRequest { r := nycParisRequest(); r.Source = ""; return r }(), wantStatus: http.StatusBadRequest, wantError: "field source is required"},
		{name: "unknown field", body: map[string]any{"source": "x", "color": "red"}, wantStatus: http.StatusBadRequest, wantError: `body contains unknown key "color"`},
		{name: "missing key", genErr: generativeAI.ErrMissingAPIKey, body: nycParisRequest(), wantStatus: http.StatusServiceUnavailable, wantError: "Gemini API key not set"},
		{name: "transport error", genErr: &generativeAI.TransportError{StatusCode: 500, Err: errors.New("boom")}, body: nycParisRequest(), wantStatus: http.StatusBadGateway, wantError: "Failed to generate itinerary"},
		{name: "empty response", genErr: generativeAI.ErrEmptyResponse, body: nycParisRequest(), wantStatus: http.StatusBadGateway, wantError: "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockGenerator)
			gen.On("GenerateContent", mock.Anything, mock.Anything).Return(tt.genResp, tt.genErr).Maybe()
			_, router := newTestHandler(gen, "")

			rr := doJSON(t, router, http.MethodPost, "/api/v1/plans", tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			if tt.wantError != "" {
				assert.Contains(t, decodeError(t, rr), tt.wantError)
				return
			}
			var result types.PlanResult
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
			assert.Len(t, result.Itinerary.Days, 2)
			assert.False(t, result.FlightsAttached)
			assert.NotContains(t, rr.Body.String(), `"flights"`)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything).Return(nycParisJSON, nil)
	_, router := newTestHandler(gen, "test-signing-key")

	rr := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created api.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "idle", created.State)
	base := "/api/v1/sessions/" + created.ID

	// nothing to share yet
	rr = doJSON(t, router, http.MethodGet, base+"/share", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodPost, base+"/plan", nycParisRequest())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var snap types.PlanSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, types.PlanStateReady, snap.State)
	assert.Equal(t, uint64(1), snap.Sequence)
	require.NotNil(t, snap.Result)

	rr = doJSON(t, router, http.MethodGet, base+"/share?format=text", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Paris Getaway\n\nTwo days of art and food in Paris.\n"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")

	rr = doJSON(t, router, http.MethodGet, base+"/share?format=ics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "itinerary.ics")
	assert.Contains(t, rr.Body.String(), "BEGIN:VCALENDAR")

	rr = doJSON(t, router, http.MethodGet, base+"/share?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, base+"/share-links", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var link api.ShareLinkResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &link))
	assert.True(t, strings.HasPrefix(link.URL, "http://trips.test/api/v1/shared/"))

	rr = doJSON(t, router, http.MethodGet, "/api/v1/shared/"+link.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var shared types.Itinerary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &shared))
	assert.Equal(t, "Paris Getaway", shared.Title)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/shared/"+link.Token+"?format=pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))

	rr = doJSON(t, router, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, types.PlanStateIdle, snap.State)

	// the shared snapshot outlives the session state
	rr = doJSON(t, router, http.MethodGet, "/api/v1/shared/"+link.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSubmitPlan_Failures(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything).
		Return("", &generativeAI.TransportError{StatusCode: 429, Err: errors.New("quota")})
	_, router := newTestHandler(gen, "")

	rr := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	var created api.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	base := "/api/v1/sessions/" + created.ID

	bad := nycParisRequest()
	bad.Travelers = 0
	rr = doJSON(t, router, http.MethodPost, base+"/plan", bad)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, base+"/plan", nycParisRequest())
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = doJSON(t, router, http.MethodGet, base, nil)
	var snap types.PlanSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, types.PlanStateFailed, snap.State)
	assert.NotContains(t, snap.Error, "quota")

	rr = doJSON(t, router, http.MethodPost, base+"/share-links", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestSessionNotFound(t *testing.T) {
	_, router := newTestHandler(new(MockGenerator), "")
	rr := doJSON(t, router, http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, `Planning session "nope" not found`, decodeError(t, rr))
}

func TestSharedItinerary_Errors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		_, router := newTestHandler(new(MockGenerator), "")
		rr := doJSON(t, router, http.MethodGet, "/api/v1/shared/abc", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		_, router := newTestHandler(new(MockGenerator), "key")
		rr := doJSON(t, router, http.MethodGet, "/api/v1/shared/not-a-jwt", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestShareLinks(t *testing.T) {
	it := types.Itinerary{
		Title:   "Paris",
		Summary: "s",
		Days:    []types.Day{{Day: 1, Date: "2025-06-01", Activities: []types.Activity{{Time: "am", Description: "d"}}}},
	}

	t.Run("round trip", func(t *testing.T) {
		links := NewShareLinks("secret", time.Hour, "http://x/")
		link, err := links.Create(it)
		require.NoError(t, err)
		assert.Equal(t, "http://x/api/v1/shared/"+link.Token, link.URL)

		got, err := links.Resolve(link.Token)
		require.NoError(t, err)
		assert.Equal(t, it, got)
	})

	t.Run("other key", func(t *testing.T) {
		link, err := NewShareLinks("secret", time.Hour, "").Create(it)
		require.NoError(t, err)

		_, err = NewShareLinks("different", time.Hour, "").Resolve(link.Token)
		assert.ErrorIs(t, err, ErrInvalidShareToken)
	})

	t.Run("expired", func(t *testing.T) {
		links := NewShareLinks("secret", time.Hour, "")
		link, err := links.Create(it)
		require.NoError(t, err)

		links.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = links.Resolve(link.Token)
		assert.ErrorIs(t, err, ErrInvalidShareToken)
	})

	t.Run("disabled", func(t *testing.T) {
		_, err := NewShareLinks("", time.Hour, "").Create(it)
		assert.ErrorIs(t, err, ErrShareLinksDisabled)
	})
}

func TestHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: &types.FieldError{Field: "source", Rule: "required"}, want: http.StatusBadRequest},
		{err: generativeAI.ErrMissingAPIKey, want: http.StatusServiceUnavailable},
		{err: ErrSuperseded, want: http.StatusConflict},
		{err: generativeAI.ErrEmptyResponse, want: http.StatusBadGateway},
		{err: &generativeAI.TransportError{StatusCode: 503}, want: http.StatusBadGateway},
		{err: errors.New("unexpected"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, msg := httpError(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}
