package flights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-fusion/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

const bestFlightsBody = `{
  "best_flights": [
    {
      "flights": [
        {
          "flight_number": "AF 7",
          "airline": "Air France",
          "airline_logo": "https://example.com/af.png",
          "departure_airport": {"id": "JFK", "name": "John F. Kennedy International Airport", "time": "2025-06-01 18:00"},
          "arrival_airport": {"id": "CDG", "name": "Paris Charles de Gaulle Airport", "time": "2025-06-02 07:30"},
          "duration": 450,
          "travel_class": "Economy",
          "airplane": "Boeing 777",
          "legroom": "31 in",
          "overnight": true,
          "often_delayed_by_over_30_min": false
        }
      ],
      "price": 650
    }
  ]
}`

const otherFlightsBody = `{
  "best_flights": [],
  "other_flights": [
    {"flights": [{"flight_number": "DL 264", "airline": "Delta", "departure_airport": {"id": "JFK"}, "arrival_airport": {"id": "CDG"}, "duration": "455"}], "price": "$702"}
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFakeSerpAPI(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, chan url.Values) {
	t.Helper()
	var hits atomic.Int32
	queries := make(chan url.Values, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case queries <- r.URL.Query():
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, queries
}

var parisQuery = types.FlightQuery{Source: "JFK", Destination: "CDG", OutboundDate: "2025-06-01"}

func TestSerpAPIClient_BestFlights(t *testing.T) {
	srv, _, queries := newFakeSerpAPI(t, http.StatusOK, bestFlightsBody)
	client := NewSerpAPIClient(ClientConfig{APIKey: "serp-key", BaseURL: srv.URL})

	options, err := client.SearchFlights(context.Background(), parisQuery)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "650", options[0].Price)
	require.Len(t, options[0].Legs, 1)

	leg := options[0].Legs[0]
	assert.Equal(t, "AF 7", leg.FlightNumber)
	assert.Equal(t, "Air France", leg.Airline)
	assert.Equal(t, "JFK", leg.DepartureAirport.ID)
	assert.Equal(t, "Paris Charles de Gaulle Airport", leg.ArrivalAirport.Name)
	assert.Equal(t, 450, leg.DurationMinutes)
	assert.True(t, leg.Overnight)

	q := <-queries
	assert.Equal(t, "google_flights", q.Get("engine"))
	assert.Equal(t, "JFK", q.Get("departure_id"))
	assert.Equal(t, "CDG", q.Get("arrival_id"))
	assert.Equal(t, "2025-06-01", q.Get("outbound_date"))
	assert.Equal(t, "2", q.Get("type"))
	assert.Equal(t, "serp-key", q.Get("api_key"))
}

func TestSerpAPIClient_FallsBackToOtherFlights(t *testing.T) {
	srv, _, _ := newFakeSerpAPI(t, http.StatusOK, otherFlightsBody)
	client := NewSerpAPIClient(ClientConfig{APIKey: "serp-key", BaseURL: srv.URL})

	options, err := client.SearchFlights(context.Background(), parisQuery)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "$702", options[0].Price)
	assert.Equal(t, 455, options[0].Legs[0].DurationMinutes)
}

func TestSerpAPIClient_Errors(t *testing.T) {
	t.Run("missing key never calls network", func(t *testing.T) {
		srv, hits, _ := newFakeSerpAPI(t, http.StatusOK, bestFlightsBody)
		client := NewSerpAPIClient(ClientConfig{BaseURL: srv.URL})

		_, err := client.SearchFlights(context.Background(), parisQuery)
		assert.ErrorIs(t, err, ErrMissingAPIKey)
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("non-success status", func(t *testing.T) {
		srv, _, _ := newFakeSerpAPI(t, http.StatusUnauthorized, `{"error":"Invalid API key."}`)
		client := NewSerpAPIClient(ClientConfig{APIKey: "bad", BaseURL: srv.URL})

		_, err := client.SearchFlights(context.Background(), parisQuery)
		var serr *StatusError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
		assert.Equal(t, "Invalid API key.", serr.Message)
	})

	t.Run("error field with 200", func(t *testing.T) {
		srv, _, _ := newFakeSerpAPI(t, http.StatusOK, `{"error":"Google Flights hasn't returned any results for this query."}`)
		client := NewSerpAPIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})

		_, err := client.SearchFlights(context.Background(), parisQuery)
		var serr *StatusError
		require.True(t, errors.As(err, &serr))
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _, _ := newFakeSerpAPI(t, http.StatusOK, `not json`)
		client := NewSerpAPIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})

		_, err := client.SearchFlights(context.Background(), parisQuery)
		assert.ErrorContains(t, err, "failed to decode response")
	})
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()
	key := CacheKey(parisQuery)

	_, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	want := []types.FlightOption{{Price: "650"}}
	require.NoError(t, c.Set(ctx, key, want))

	got, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestCacheKey_IsCaseInsensitive(t *testing.T) {
	a := CacheKey(types.FlightQuery{Source: "jfk", Destination: " cdg", OutboundDate: "2025-06-01"})
	b := CacheKey(parisQuery)
	assert.Equal(t, a, b)
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisCache(client, time.Minute)

	_, found, err := c.Get(context.Background(), CacheKey(parisQuery))
	assert.Error(t, err)
	assert.False(t, found)
}

// MockSearcher is a testify mock of Searcher.
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchFlights(ctx context.Context, q types.FlightQuery) ([]types.FlightOption, error) {
	args := m.Called(ctx, q)
	if v := args.Get(0); v != nil {
		return v.([]types.FlightOption), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestServiceImpl_Search_UsesCache(t *testing.T) {
	searcher := new(MockSearcher)
	want := []types.FlightOption{{Price: "650"}}
	searcher.On("SearchFlights", mock.Anything, parisQuery).Return(want, nil).Once()

	svc := NewServiceImpl(searcher, NewMemoryCache(time.Minute), metrics.Noop(), discardLogger())

	for i := 0; i < 3; i++ {
		got, err := svc.Search(context.Background(), parisQuery)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	searcher.AssertExpectations(t)
}

func TestServiceImpl_Search_ErrorsAreNotCached(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchFlights", mock.Anything, parisQuery).Return(nil, errors.New("boom")).Twice()

	svc := NewServiceImpl(searcher, NewMemoryCache(time.Minute), metrics.Noop(), discardLogger())

	_, err := svc.Search(context.Background(), parisQuery)
	assert.ErrorContains(t, err, "boom")
	_, err = svc.Search(context.Background(), parisQuery)
	assert.Error(t, err)
	searcher.AssertExpectations(t)
}

type blockingSearcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingSearcher) SearchFlights(ctx context.Context, _ types.FlightQuery) ([]types.FlightOption, error) {
	b.calls.Add(1)
	<-b.release
	return []types.FlightOption{{Price: "1"}}, nil
}

func TestServiceImpl_Search_CollapsesConcurrentLookups(t *testing.T) {
	searcher := &blockingSearcher{release: make(chan struct{})}
	svc := NewServiceImpl(searcher, NewMemoryCache(time.Minute), metrics.Noop(), discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Search(context.Background(), parisQuery)
			assert.NoError(t, err)
		}()
	}
	// let the goroutines pile up behind the first call
	require.Eventually(t, func() bool { return searcher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(searcher.release)
	wg.Wait()

	assert.Equal(t, int32(1), searcher.calls.Load())
}

type stubService struct {
	options []types.FlightOption
	err     error
	calls   int
	last    types.FlightQuery
}

func (s *stubService) Search(_ context.Context, q types.FlightQuery) ([]types.FlightOption, error) {
	s.calls++
	s.last = q
	return s.options, s.err
}

func sampleItinerary() types.Itinerary {
	return types.Itinerary{
		Title:   "Paris",
		Summary: "Two days",
		Days: []types.Day{{Day: 1, Date: "2025-06-01", Activities: []types.Activity{
			{Time: "9:00 AM", Description: "Louvre"},
		}}},
		Tips: []string{"Walk"},
	}
}

// cancellableSearcher blocks until released and honours its context.
type cancellableSearcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *cancellableSearcher) SearchFlights(ctx context.Context, _ types.FlightQuery) ([]types.FlightOption, error) {
	c.calls.Add(1)
	select {
	case <-c.release:
		return []types.FlightOption{{Price: "1"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestServiceImpl_Search_CancelledCallerDoesNotFailOthers(t *testing.T) {
	searcher := &cancellableSearcher{release: make(chan struct{})}
	cache := NewMemoryCache(time.Minute)
	svc := NewServiceImpl(searcher, cache, metrics.Noop(), discardLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Search(firstCtx, parisQuery)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return searcher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		options []types.FlightOption
		err     error
	}
	second := make(chan result, 1)
	go func() {
		options, err := svc.Search(context.Background(), parisQuery)
		second <- result{options, err}
	}()
	// let the second caller join the in-flight lookup
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(searcher.release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Len(t, got.options, 1)
	case <-time.After(time.Second):
		t.Fatal("live caller never got a result")
	}
	assert.Equal(t, int32(1), searcher.calls.Load())

	cached, found, err := cache.Get(context.Background(), CacheKey(parisQuery))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, cached, 1)
}

func TestAugmenter_Augment(t *testing.T) {
	req := types.TripRequest{Source: "JFK", Destination: "CDG", StartDate: "2025-06-01T08:00:00Z"}

	t.Run("attaches options", func(t *testing.T) {
		svc := &stubService{options: []types.FlightOption{{Price: "650"}}}
		a := NewAugmenter(svc, discardLogger())
		in := sampleItinerary()

		out, diag := a.Augment(context.Background(), in, req)
		assert.Nil(t, diag)
		assert.Equal(t, svc.options, out.Flights)
		assert.Equal(t, "2025-06-01", svc.last.OutboundDate)
		assert.Nil(t, in.Flights)
	})

	t.Run("search error leaves itinerary unchanged", func(t *testing.T) {
		svc := &stubService{err: errors.New("upstream down")}
		a := NewAugmenter(svc, discardLogger())
		in := sampleItinerary()

		out, diag := a.Augment(context.Background(), in, req)
		require.NotNil(t, diag)
		assert.Equal(t, types.DiagnosticFlights, diag.Kind)
		assert.Contains(t, diag.Message, "upstream down")
		assert.Equal(t, in, out)
	})

	t.Run("no results", func(t *testing.T) {
		a := NewAugmenter(&stubService{}, discardLogger())
		out, diag := a.Augment(context.Background(), sampleItinerary(), req)
		require.NotNil(t, diag)
		assert.False(t, out.HasFlights())
	})

	t.Run("unparsable date never searches", func(t *testing.T) {
		svc := &stubService{}
		a := NewAugmenter(svc, discardLogger())
		bad := req
		bad.StartDate = "soon"

		out, diag := a.Augment(context.Background(), sampleItinerary(), bad)
		require.NotNil(t, diag)
		assert.Contains(t, diag.Message, "invalid departure date")
		assert.Zero(t, svc.calls)
		assert.Equal(t, sampleItinerary(), out)
	})
}
