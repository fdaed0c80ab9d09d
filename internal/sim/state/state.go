// Package state coordinates the loaded simulation: the scenario
// document, the route model derived from it, and the engine states
// rebuilt whenever a new scenario replaces the current one.
package state

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/actor-motion-sim/internal/logging"
	"github.com/signalsfoundry/actor-motion-sim/model"
	"github.com/signalsfoundry/actor-motion-sim/route"
)

const tracerName = "github.com/signalsfoundry/actor-motion-sim/internal/sim/state"

var (
	// ErrNoSimulation indicates no scenario has been loaded yet.
	ErrNoSimulation = errors.New("no simulation loaded")
	// ErrActorNotFound indicates a requested actor is not part of the
	// current simulation.
	ErrActorNotFound = errors.New("actor not found")
)

// EngineInitializer is the slice of the motion engine the state layer
// needs: rebuilding animation states when the scenario changes.
type EngineInitializer interface {
	InitializeStates(sim *model.Simulation)
}

// SimulationMetricsRecorder receives count updates for the loaded scenario.
type SimulationMetricsRecorder interface {
	SetSimulationCounts(actors, arrived int)
}

// SimulationState owns the currently loaded simulation. Loading a new
// scenario replaces the previous one wholesale: routes are rebuilt,
// detailed-path overlays are discarded, and engine states restart from
// each actor's first waypoint.
type SimulationState struct {
	mu sync.RWMutex

	current *model.Simulation
	routes  *route.Model
	engine  EngineInitializer
	log     logging.Logger
	metrics SimulationMetricsRecorder
}

// SimulationStateOption customises SimulationState construction.
type SimulationStateOption func(*SimulationState)

// WithEngine attaches the motion engine whose states are rebuilt on load.
func WithEngine(e EngineInitializer) SimulationStateOption {
	return func(s *SimulationState) {
		s.engine = e
	}
}

// WithMetricsRecorder attaches an optional recorder for actor counts.
func WithMetricsRecorder(m SimulationMetricsRecorder) SimulationStateOption {
	return func(s *SimulationState) {
		s.metrics = m
	}
}

// NewSimulationState wires the state layer to a route model.
func NewSimulationState(routes *route.Model, log logging.Logger, opts ...SimulationStateOption) *SimulationState {
	if log == nil {
		log = logging.Noop()
	}
	s := &SimulationState{
		routes: routes,
		log:    log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Routes exposes the route model derived from the loaded simulation.
func (s *SimulationState) Routes() *route.Model {
	return s.routes
}

// LoadSimulation replaces the current scenario. Route geometry is
// rebuilt from the new actors' destination lists and the engine, when
// attached, restarts every animation state.
func (s *SimulationState) LoadSimulation(ctx context.Context, sim *model.Simulation) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scenario.load",
		trace.WithAttributes(attribute.String("component", "sim.state")))
	defer span.End()

	if sim == nil {
		span.RecordError(ErrNoSimulation)
		return ErrNoSimulation
	}
	span.SetAttributes(
		attribute.String("simulation.id", sim.ID),
		attribute.String("simulation.slug", sim.Slug),
		attribute.Int("simulation.actors", len(sim.Actors)),
	)

	s.mu.Lock()
	s.current = sim
	s.mu.Unlock()

	if s.routes != nil {
		s.routes.ReplaceRoutes(sim)
	}
	if s.engine != nil {
		s.engine.InitializeStates(sim)
	}
	if s.metrics != nil {
		s.metrics.SetSimulationCounts(len(sim.Actors), 0)
	}

	s.log.Info(ctx, "simulation loaded",
		logging.String("simulation_id", sim.ID),
		logging.String("slug", sim.Slug),
		logging.Int("actors", len(sim.Actors)),
	)
	return nil
}

// Current returns the loaded simulation, or ErrNoSimulation.
func (s *SimulationState) Current() (*model.Simulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSimulation
	}
	return s.current, nil
}

// Actor looks up an actor in the loaded simulation by ID.
func (s *SimulationState) Actor(id string) (*model.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSimulation
	}
	a := s.current.Actor(id)
	if a == nil {
		return nil, ErrActorNotFound
	}
	return a, nil
}
