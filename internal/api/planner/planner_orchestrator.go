package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

// ErrSuperseded is reported for a submission overtaken by a newer one or by
// a reset.
var ErrSuperseded = errors.New("planner: superseded by a newer submission")

// Outcome is delivered once per submission.
type Outcome struct {
	Sequence uint64
	Result   *types.PlanResult
	Err      error
	// Stale is set when the submission lost to a later one; Result is then
	// nil and the session state was left untouched.
	Stale bool
}

// Orchestrator owns the state of one planning session. Each submission runs
// on its own goroutine; only the latest one may change the state.
type Orchestrator struct {
	id      string
	planner Service
	timeout time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	state     types.PlanState
	seq       uint64
	request   *types.TripRequest
	result    *types.PlanResult
	err       error
	updatedAt time.Time
	cancel    context.CancelFunc
}

func NewOrchestrator(id string, planner Service, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		id:        id,
		planner:   planner,
		timeout:   timeout,
		logger:    logger.With(slog.String("session_id", id)),
		state:     types.PlanStateIdle,
		updatedAt: time.Now().UTC(),
	}
}

func (o *Orchestrator) ID() string { return o.id }

// Submit validates req and starts planning it. An invalid request is
// rejected without touching the session. A submission made while another
// is in flight supersedes it.
func (o *Orchestrator) Submit(req types.TripRequest) (<-chan Outcome, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if o.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.seq++
	seq := o.seq
	o.cancel = cancel
	o.request = &req
	o.result = nil
	o.err = nil
	o.setState(types.PlanStateRequesting)
	o.mu.Unlock()

	o.logger.Debug("Planning submitted", slog.Uint64("sequence", seq))

	out := make(chan Outcome, 1)
	go o.run(ctx, cancel, seq, req, out)
	return out, nil
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, seq uint64, req types.TripRequest, out chan<- Outcome) {
	defer cancel()

	result, err := o.planner.Plan(ctx, o.id, req, func(state types.PlanState) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if seq == o.seq {
			o.setState(state)
		}
	})

	o.mu.Lock()
	defer o.mu.Unlock()

	if seq != o.seq {
		o.logger.Debug("Discarding superseded planning result", slog.Uint64("sequence", seq))
		out <- Outcome{Sequence: seq, Err: ErrSuperseded, Stale: true}
		return
	}

	o.cancel = nil
	if err != nil {
		o.err = err
		o.setState(types.PlanStateFailed)
		out <- Outcome{Sequence: seq, Err: err}
		return
	}
	o.result = result
	o.setState(types.PlanStateReady)
	out <- Outcome{Sequence: seq, Result: result}
}

// Reset returns the session to idle from any state. An in-flight
// submission is cancelled and its outcome discarded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.seq++
	o.request = nil
	o.result = nil
	o.err = nil
	o.setState(types.PlanStateIdle)
}

func (o *Orchestrator) Snapshot() types.PlanSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := types.PlanSnapshot{
		ID:        o.id,
		State:     o.state,
		Sequence:  o.seq,
		UpdatedAt: o.updatedAt,
	}
	if o.request != nil {
		req := *o.request
		snap.Request = &req
	}
	if o.result != nil {
		res := *o.result
		res.Itinerary = o.result.Itinerary.Clone()
		snap.Result = &res
	}
	if o.err != nil {
		snap.Error = PublicMessage(o.err)
	}
	return snap
}

func (o *Orchestrator) setState(state types.PlanState) {
	o.state = state
	o.updatedAt = time.Now().UTC()
}
