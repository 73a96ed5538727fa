package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

var (
	ErrNoJSONObject = errors.New("itinerary: no balanced JSON object in response")
	ErrInvalidShape = errors.New("itinerary: response does not match the itinerary schema")
)

// ExtractResult is the outcome of turning model text into an itinerary.
// Fallback is set when Itinerary is the placeholder; Reason then says why.
type ExtractResult struct {
	Itinerary types.Itinerary
	Fallback  bool
	Reason    error
}

// Extract finds the first balanced JSON object in raw that decodes into a
// schema-valid itinerary. Any failure degrades to the placeholder itinerary
// for req instead of an error.
func Extract(raw string, req types.TripRequest) ExtractResult {
	it, err := Parse(raw)
	if err != nil {
		return ExtractResult{Itinerary: Placeholder(req), Fallback: true, Reason: err}
	}
	return ExtractResult{Itinerary: it}
}

// Parse is Extract without the placeholder policy.
func Parse(raw string) (types.Itinerary, error) {
	var lastErr error
	found := false
	for start := 0; ; {
		obj, at, ok := nextObject(raw, start)
		if !ok {
			break
		}
		found = true
		it, err := decode(obj)
		if err == nil {
			return it, nil
		}
		lastErr = err
		start = at + 1
	}
	if !found {
		return types.Itinerary{}, ErrNoJSONObject
	}
	return types.Itinerary{}, lastErr
}

// ExtractJSONObject returns the first structurally balanced {...} region of
// text. Braces inside JSON strings do not count.
func ExtractJSONObject(text string) (string, bool) {
	obj, _, ok := nextObject(text, 0)
	return obj, ok
}

// nextObject scans for the first '{' at or after from whose braces balance,
// returning the region and its start offset.
func nextObject(text string, from int) (string, int, bool) {
	for from < len(text) {
		i := strings.IndexByte(text[from:], '{')
		if i < 0 {
			return "", 0, false
		}
		start := from + i
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], start, true
		}
		from = start + 1
	}
	return "", 0, false
}

// matchBrace returns the index of the '}' closing the '{' at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decode(obj string) (types.Itinerary, error) {
	var it types.Itinerary
	if err := json.Unmarshal([]byte(obj), &it); err != nil {
		return types.Itinerary{}, fmt.Errorf("itinerary: failed to parse JSON: %w", err)
	}
	if err := it.Validate(); err != nil {
		return types.Itinerary{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	// Flight options only ever come from the flight search.
	it.Flights = nil
	for i := range it.Days {
		if it.Days[i].Day == 0 {
			it.Days[i].Day = i + 1
		}
	}
	if it.Tips == nil {
		it.Tips = []string{}
	}
	return it, nil
}

// Placeholder is the fixed itinerary served when the model's answer cannot
// be used.
func Placeholder(req types.TripRequest) types.Itinerary {
	return types.Itinerary{
		Title:   fmt.Sprintf("%s to %s Trip", req.Source, req.Destination),
		Summary: "We had trouble generating a detailed itinerary. Please try again with different parameters or check your API key.",
		Days: []types.Day{
			{
				Day:  1,
				Date: req.StartDate,
				Activities: []types.Activity{
					{
						Time:        "All day",
						Description: "Custom itinerary planning",
						Location:    req.Destination,
					},
				},
			},
		},
		Tips: []string{
			"Always check local weather before traveling",
			"Research local customs and traditions",
		},
	}
}
