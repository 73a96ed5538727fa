package types

// FlightOption is one group of legs offered for a route, with an optional
// aggregate price.
type FlightOption struct {
	Price string      `json:"price,omitempty"`
	Legs  []FlightLeg `json:"flights"`
}

type FlightLeg struct {
	FlightNumber     string  `json:"flightNumber"`
	Airline          string  `json:"airline"`
	AirlineLogo      string  `json:"airlineLogo,omitempty"`
	DepartureAirport Airport `json:"departureAirport"`
	ArrivalAirport   Airport `json:"arrivalAirport"`
	DurationMinutes  int     `json:"durationMinutes"`
	TravelClass      string  `json:"travelClass"`
	Airplane         string  `json:"airplane"`
	Legroom          string  `json:"legroom"`
	Overnight        bool    `json:"overnight"`
	OftenDelayed     bool    `json:"oftenDelayed"`
}

type Airport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Time string `json:"time"`
}

// FlightQuery identifies a one-way flight search.
type FlightQuery struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	// OutboundDate is always YYYY-MM-DD once normalized.
	OutboundDate string `json:"outboundDate"`
}
