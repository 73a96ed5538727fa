package itinerary

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

const itinerarySchema = `{
  "title": "Catchy trip title",
  "summary": "Brief summary of the trip",
  "budgetBreakdown": {
    "accommodation": "$X",
    "transportation": "$X",
    "activities": "$X",
    "food": "$X",
    "misc": "$X",
    "total": "$X"
  },
  "days": [
    {
      "day": 1,
      "date": "YYYY-MM-DD",
      "activities": [
        {
          "time": "XX:XX AM/PM",
          "description": "Activity description",
          "location": "Location name",
          "cost": "$X"
        }
      ]
    }
  ],
  "tips": ["Tip 1", "Tip 2", "Tip 3"]
}`

// BuildTripPrompt renders a trip request into the instruction sent to the
// generative model.
func BuildTripPrompt(req types.TripRequest) string {
	return fmt.Sprintf(`
You are an expert travel planner. Please create a detailed day-by-day travel itinerary from %s to %s with the following details:

- Travel dates: %s to %s
- Budget: %s
- Number of travelers: %d
- Interests: %s

Please provide:
1. A catchy title for the trip
2. A summary of the trip in 2-3 sentences
3. A day-by-day itinerary with:
   - The date for each day
   - 3-5 activities per day with approximate times
   - Locations and estimated costs for each activity
4. A budget breakdown for the entire trip (accommodation, transportation, activities, food, misc)
5. 3-5 travel tips for this specific destination

Format your response as JSON with the following structure:
%s
`, req.Source, req.Destination,
		req.StartDate, req.EndDate,
		req.Budget,
		req.Travelers,
		strings.Join(req.Interests, ", "),
		itinerarySchema)
}
