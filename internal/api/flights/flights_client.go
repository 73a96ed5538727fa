package flights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

const (
	defaultBaseURL = "https://serpapi.com/search"
	defaultEngine  = "google_flights"
	defaultTimeout = 30 * time.Second

	// oneWay is the SerpApi Google Flights trip type for a single outbound leg.
	oneWay = "2"
)

var ErrMissingAPIKey = errors.New("flights: SerpApi key not set")

// StatusError is a non-success answer from the flight search endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("flights: SerpApi error: %d: %s", e.StatusCode, e.Message)
}

// Searcher returns the flight options for one outbound route and day.
type Searcher interface {
	SearchFlights(ctx context.Context, q types.FlightQuery) ([]types.FlightOption, error)
}

type ClientConfig struct {
	APIKey        string
	BaseURL       string
	Engine        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

var _ Searcher = (*SerpAPIClient)(nil)

// SerpAPIClient queries the SerpApi Google Flights engine.
type SerpAPIClient struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
}

func NewSerpAPIClient(cfg ClientConfig) *SerpAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = defaultEngine
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &SerpAPIClient{cfg: cfg, http: httpClient, limiter: limiter}
}

func (c *SerpAPIClient) SearchFlights(ctx context.Context, q types.FlightQuery) ([]types.FlightOption, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("flights: rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("engine", c.cfg.Engine)
	params.Set("departure_id", q.Source)
	params.Set("arrival_id", q.Destination)
	params.Set("outbound_date", q.OutboundDate)
	params.Set("type", oneWay)
	params.Set("api_key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("flights: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flights: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("flights: failed to read response: %w", err)
	}

	var payload searchResponse
	decodeErr := json.NewDecoder(bytes.NewReader(body)).Decode(&payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := payload.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("flights: failed to decode response: %w", decodeErr)
	}
	if payload.Error != "" {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	groups := payload.BestFlights
	if len(groups) == 0 {
		groups = payload.OtherFlights
	}
	return toFlightOptions(groups), nil
}

type searchResponse struct {
	BestFlights  []flightGroup `json:"best_flights"`
	OtherFlights []flightGroup `json:"other_flights"`
	Error        string        `json:"error"`
}

type flightGroup struct {
	Flights []flightLeg `json:"flights"`
	Price   flexString  `json:"price"`
}

type flightLeg struct {
	FlightNumber     string     `json:"flight_number"`
	Airline          string     `json:"airline"`
	AirlineLogo      string     `json:"airline_logo"`
	DepartureAirport airport    `json:"departure_airport"`
	ArrivalAirport   airport    `json:"arrival_airport"`
	Duration         flexString `json:"duration"`
	TravelClass      string     `json:"travel_class"`
	Airplane         string     `json:"airplane"`
	Legroom          string     `json:"legroom"`
	Overnight        bool       `json:"overnight"`
	OftenDelayed     bool       `json:"often_delayed_by_over_30_min"`
}

type airport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Time string `json:"time"`
}

// flexString accepts a JSON number or string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func toFlightOptions(groups []flightGroup) []types.FlightOption {
	out := make([]types.FlightOption, 0, len(groups))
	for _, g := range groups {
		opt := types.FlightOption{
			Price: string(g.Price),
			Legs:  make([]types.FlightLeg, 0, len(g.Flights)),
		}
		for _, l := range g.Flights {
			minutes, _ := strconv.Atoi(string(l.Duration))
			opt.Legs = append(opt.Legs, types.FlightLeg{
				FlightNumber:     l.FlightNumber,
				Airline:          l.Airline,
				AirlineLogo:      l.AirlineLogo,
				DepartureAirport: types.Airport(l.DepartureAirport),
				ArrivalAirport:   types.Airport(l.ArrivalAirport),
				DurationMinutes:  minutes,
				TravelClass:      l.TravelClass,
				Airplane:         l.Airplane,
				Legroom:          l.Legroom,
				Overnight:        l.Overnight,
				OftenDelayed:     l.OftenDelayed,
			})
		}
		out = append(out, opt)
	}
	return out
}
