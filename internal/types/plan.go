package types

import "time"

// DiagnosticKind names the pipeline stage that degraded.
type DiagnosticKind string

const (
	DiagnosticExtraction DiagnosticKind = "extraction"
	DiagnosticFlights    DiagnosticKind = "flights"
)

// Diagnostic is a non-fatal problem absorbed by the planning pipeline.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// PlanResult is the outcome of one successful planning operation. The
// itinerary is either itinerary-only or itinerary-with-flights; failed
// augmentations are reported in Diagnostics.
type PlanResult struct {
	Itinerary       Itinerary    `json:"itinerary"`
	FlightsAttached bool         `json:"flightsAttached"`
	Placeholder     bool         `json:"placeholder"`
	Diagnostics     []Diagnostic `json:"diagnostics,omitempty"`
	GeneratedAt     time.Time    `json:"generatedAt"`
}

// Diagnostic returns the first diagnostic of the given kind.
func (p *PlanResult) Diagnostic(kind DiagnosticKind) (Diagnostic, bool) {
	for _, d := range p.Diagnostics {
		if d.Kind == kind {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// PlanState is a state of the planning orchestrator.
type PlanState string

const (
	PlanStateIdle       PlanState = "idle"
	PlanStateRequesting PlanState = "requesting"
	PlanStateAugmenting PlanState = "augmenting"
	PlanStateReady      PlanState = "ready"
	PlanStateFailed     PlanState = "failed"
)

// Busy reports whether a planning operation is in flight.
func (s PlanState) Busy() bool {
	return s == PlanStateRequesting || s == PlanStateAugmenting
}

// PlanSnapshot is a point-in-time view of a planning session.
type PlanSnapshot struct {
	ID        string       `json:"id"`
	State     PlanState    `json:"state"`
	Sequence  uint64       `json:"sequence"`
	Request   *TripRequest `json:"request,omitempty"`
	Result    *PlanResult  `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
