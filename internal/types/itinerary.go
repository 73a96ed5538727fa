package types

import "slices"

// Itinerary is the structured trip plan returned to the user.
type Itinerary struct {
	Title           string           `json:"title" validate:"required"`
	Summary         string           `json:"summary" validate:"required"`
	BudgetBreakdown *BudgetBreakdown `json:"budgetBreakdown,omitempty"`
	Days            []Day            `json:"days" validate:"required,min=1,dive"`
	Tips            []string         `json:"tips"`
	Flights         []FlightOption   `json:"flights,omitempty"`
}

// BudgetBreakdown holds free-form currency strings as produced by the model.
type BudgetBreakdown struct {
	Accommodation  string `json:"accommodation"`
	Transportation string `json:"transportation"`
	Activities     string `json:"activities"`
	Food           string `json:"food"`
	Misc           string `json:"misc"`
	Total          string `json:"total"`
}

type Day struct {
	Day        int        `json:"day"`
	Date       string     `json:"date" validate:"required"`
	Activities []Activity `json:"activities" validate:"required,min=1,dive"`
}

type Activity struct {
	Time        string `json:"time" validate:"required"`
	Description string `json:"description" validate:"required"`
	Location    string `json:"location,omitempty"`
	Cost        string `json:"cost,omitempty"`
}

// Validate checks the itinerary against the schema requested from the model.
func (it Itinerary) Validate() error {
	return ValidateStruct(it)
}

// HasFlights reports whether flight options were attached.
func (it Itinerary) HasFlights() bool {
	return len(it.Flights) > 0
}

// Clone returns a deep copy so callers can enrich an itinerary without
// touching the original.
func (it Itinerary) Clone() Itinerary {
	out := it
	if it.BudgetBreakdown != nil {
		b := *it.BudgetBreakdown
		out.BudgetBreakdown = &b
	}
	if it.Days != nil {
		out.Days = make([]Day, len(it.Days))
		for i, d := range it.Days {
			out.Days[i] = d
			out.Days[i].Activities = slices.Clone(d.Activities)
		}
	}
	out.Tips = slices.Clone(it.Tips)
	if it.Flights != nil {
		out.Flights = make([]FlightOption, len(it.Flights))
		for i, f := range it.Flights {
			out.Flights[i] = f
			out.Flights[i].Legs = slices.Clone(f.Legs)
		}
	}
	return out
}

