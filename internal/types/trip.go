package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// TripRequest is the set of trip parameters submitted by the planning form.
type TripRequest struct {
	Source         string   `json:"source" validate:"required"`
	Destination    string   `json:"destination" validate:"required"`
	StartDate      string   `json:"startDate" validate:"required"`
	EndDate        string   `json:"endDate" validate:"required"`
	Budget         string   `json:"budget" validate:"required"`
	Travelers      int      `json:"travelers" validate:"required,min=1"`
	Interests      []string `json:"interests" validate:"required,min=1,dive,required"`
	IncludeFlights bool     `json:"includeFlights"`
}

// Normalize trims every text field and drops blank or repeated interests.
func (r TripRequest) Normalize() TripRequest {
	r.Source = strings.TrimSpace(r.Source)
	r.Destination = strings.TrimSpace(r.Destination)
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
	r.Budget = strings.TrimSpace(r.Budget)
	interests := lo.Map(r.Interests, func(s string, _ int) string { return strings.TrimSpace(s) })
	r.Interests = lo.Uniq(lo.Compact(interests))
	return r
}

// Validate reports the first missing field of the request.
func (r TripRequest) Validate() error {
	return ValidateStruct(r)
}

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var ErrUnparsableDate = errors.New("unparsable date")

// ParseDate accepts the date shapes produced by form inputs and by the model
// and returns the calendar day it names.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, s)
}

// NormalizeDate rewrites s as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}
