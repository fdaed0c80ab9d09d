// Package engine implements the actor animation engine: per-actor
// animation state advanced along multi-waypoint routes by a shared
// playback clock. The engine owns its state and is handed to consumers
// explicitly; rendering adapters read snapshots and never write back.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/actor-motion-sim/geo"
	"github.com/signalsfoundry/actor-motion-sim/internal/logging"
	"github.com/signalsfoundry/actor-motion-sim/model"
	"github.com/signalsfoundry/actor-motion-sim/playback"
	"github.com/signalsfoundry/actor-motion-sim/route"
)

const (
	// defaultProgressRate converts elapsed milliseconds into segment
	// progress at 1x speed. Chosen so a segment takes a few seconds of
	// playback; it is a tunable, not a contract.
	defaultProgressRate = 0.0002

	// defaultLookAhead is the progress offset sampled ahead of the
	// current position when computing heading.
	defaultLookAhead = 0.01

	// arrivedThreshold is the distance-weighted completion fraction at
	// which an actor counts as functionally arrived.
	arrivedThreshold = 0.999
)

// AnimationState is one actor's mutable animation state. Progress is
// the fractional completion of the current segment, SegmentIndex the
// index of that segment, and Heading degrees [0, 360) with 0 due north.
type AnimationState struct {
	Progress     float64
	SegmentIndex int
	Position     geo.Point
	Heading      float64
}

// MetricsRecorder receives engine-level metric updates. Implementations
// must tolerate being called from the tick loop every frame.
type MetricsRecorder interface {
	SetSimulationCounts(actors, arrived int)
	IncTicks()
	IncActorFault(reason string)
	ObserveStep(d time.Duration)
}

// Option customises Engine construction.
type Option func(*Engine)

// WithLogger attaches a structured logger for per-actor fault reporting.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithProgressRate overrides the per-millisecond progress rate.
func WithProgressRate(rate float64) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.progressRate = rate
		}
	}
}

// WithLookAhead overrides the heading look-ahead progress offset.
func WithLookAhead(amount float64) Option {
	return func(e *Engine) {
		if amount > 0 {
			e.lookAhead = amount
		}
	}
}

// Engine advances every actor's animation state by one tick at a time.
// All mutation happens inside Step and InitializeStates; readers get
// copies via States.
type Engine struct {
	mu sync.RWMutex

	routes *route.Model
	clock  *playback.Clock
	log    logging.Logger

	metrics MetricsRecorder

	progressRate float64
	lookAhead    float64

	sim    *model.Simulation
	states map[string]*AnimationState
	plans  map[string]motionPlan
	order  []string

	// completionFired guards the all-arrived pause so it is issued once
	// per simulation run, not once per tick after arrival.
	completionFired bool
}

// NewEngine constructs an engine bound to a route model and a playback
// clock. Call InitializeStates before stepping.
func NewEngine(routes *route.Model, clock *playback.Clock, opts ...Option) *Engine {
	e := &Engine{
		routes:       routes,
		clock:        clock,
		log:          logging.Noop(),
		progressRate: defaultProgressRate,
		lookAhead:    defaultLookAhead,
		states:       make(map[string]*AnimationState),
		plans:        make(map[string]motionPlan),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitializeStates replaces the tracked actor set from a simulation and
// resets every animation state to the route start. Called when a new
// simulation is loaded and when the clock's reset flag is raised.
func (e *Engine) InitializeStates(sim *model.Simulation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sim = sim
	e.states = make(map[string]*AnimationState)
	e.plans = make(map[string]motionPlan)
	e.order = e.order[:0]
	e.completionFired = false

	if sim == nil {
		e.updateCountsLocked()
		return
	}

	for _, actor := range sim.Actors {
		plan := newMotionPlan(e, actor)
		st := &AnimationState{}
		plan.Initialize(st)

		e.plans[actor.ID] = plan
		e.states[actor.ID] = st
		e.order = append(e.order, actor.ID)
	}
	e.updateCountsLocked()
}

// Reinitialize re-runs initialization against the current simulation.
func (e *Engine) Reinitialize() {
	e.mu.RLock()
	sim := e.sim
	e.mu.RUnlock()
	e.InitializeStates(sim)
}

// Step advances all actors by one tick. deltaMs is the real time
// elapsed since the previous tick; playback speed and per-actor speed
// scale it into progress so motion stays frame-rate independent. A
// paused or stopped clock makes Step a no-op.
func (e *Engine) Step(deltaMs float64) {
	clockState := e.clock.Snapshot()
	if !clockState.Playing || clockState.Paused {
		return
	}
	start := time.Now()

	e.mu.Lock()
	allArrived := true
	for _, id := range e.order {
		plan := e.plans[id]
		st := e.states[id]
		plan.Step(st, deltaMs, clockState.Speed)
		if !plan.Arrived(st) {
			allArrived = false
		}
	}
	fireCompletion := false
	if allArrived && len(e.order) > 0 && !e.completionFired {
		e.completionFired = true
		fireCompletion = true
	}
	e.updateCountsLocked()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.IncTicks()
		e.metrics.ObserveStep(time.Since(start))
	}

	// Pause outside the engine lock: clock subscribers may call straight
	// back into the engine.
	if fireCompletion {
		e.log.Info(context.Background(), "all actors arrived, pausing playback")
		e.clock.Pause()
	}
}

// States returns a copy of every actor's animation state keyed by
// actor ID. Safe to read while the tick loop runs.
func (e *Engine) States() map[string]AnimationState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]AnimationState, len(e.states))
	for id, st := range e.states {
		out[id] = *st
	}
	return out
}

// State returns one actor's animation state.
func (e *Engine) State(actorID string) (AnimationState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.states[actorID]
	if !ok {
		return AnimationState{}, false
	}
	return *st, true
}

// SegmentCompletion is the naive route completion fraction
// (segments + progress over segment count). Segments of unequal length
// make this lie; prefer DistanceCompletion for arrival decisions.
func (e *Engine) SegmentCompletion(actorID string) float64 {
	e.mu.RLock()
	st, ok := e.states[actorID]
	if !ok {
		e.mu.RUnlock()
		return 0
	}
	snapshot := *st
	e.mu.RUnlock()

	count := e.routes.SegmentCount(actorID)
	if count == 0 {
		return 1
	}
	return (float64(snapshot.SegmentIndex) + snapshot.Progress) / float64(count)
}

// DistanceCompletion is the distance-weighted route completion
// fraction: completed segment lengths plus the travelled share of the
// current segment, over the whole route length. Segments with a
// detailed-path overlay are measured along that polyline so the
// fraction matches the distance an actor actually covers. Stationary
// and unknown actors report 1.
func (e *Engine) DistanceCompletion(actorID string) float64 {
	e.mu.RLock()
	st, ok := e.states[actorID]
	if !ok {
		e.mu.RUnlock()
		return 1
	}
	snapshot := *st
	e.mu.RUnlock()

	count := e.routes.SegmentCount(actorID)
	if count == 0 {
		return 1
	}

	total := 0.0
	travelled := 0.0
	for i := 0; i < count; i++ {
		seg, err := e.routes.Segment(actorID, i)
		if err != nil {
			return 0
		}
		length := geo.Distance(waypointPoint(seg.Source), waypointPoint(seg.Target))
		if path, ok := e.routes.DetailedPath(actorID, i); ok {
			length = geo.PolylineLength(path)
		}
		total += length
		switch {
		case i < snapshot.SegmentIndex:
			travelled += length
		case i == snapshot.SegmentIndex:
			travelled += snapshot.Progress * length
		}
	}
	if total == 0 {
		return 1
	}
	return travelled / total
}

// FunctionallyArrived reports whether the actor's distance-weighted
// completion has crossed the arrival threshold.
func (e *Engine) FunctionallyArrived(actorID string) bool {
	return e.DistanceCompletion(actorID) >= arrivedThreshold
}

// updateCountsLocked pushes actor totals and arrivals to the metrics
// recorder. Caller holds e.mu.
func (e *Engine) updateCountsLocked() {
	if e.metrics == nil {
		return
	}
	arrived := 0
	for _, id := range e.order {
		if e.plans[id].Arrived(e.states[id]) {
			arrived++
		}
	}
	e.metrics.SetSimulationCounts(len(e.order), arrived)
}

func waypointPoint(w model.Waypoint) geo.Point {
	return geo.Point{Lng: w.Longitude, Lat: w.Latitude}
}
