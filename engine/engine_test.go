package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/actor-motion-sim/model"
	"github.com/signalsfoundry/actor-motion-sim/playback"
	"github.com/signalsfoundry/actor-motion-sim/route"
)

// movingActor builds an actor routed through the given (lng, lat) pairs.
func movingActor(id string, speed float64, coords ...[2]float64) *model.Actor {
	a := &model.Actor{ID: id, Type: model.ActorVehicle, Speed: speed}
	for i, c := range coords {
		a.Destinations = append(a.Destinations, model.Waypoint{
			ID:        id + "-wp-" + string(rune('a'+i)),
			Longitude: c[0],
			Latitude:  c[1],
		})
	}
	return a
}

func newTestEngine(t *testing.T, sim *model.Simulation, opts ...Option) (*Engine, *playback.Clock, *route.Model) {
	t.Helper()
	routes := route.NewModel()
	routes.ReplaceRoutes(sim)
	clock := playback.NewClock()
	e := NewEngine(routes, clock, opts...)
	e.InitializeStates(sim)
	return e, clock, routes
}

// countingMetrics is a MetricsRecorder capturing engine metric calls.
type countingMetrics struct {
	mu      sync.Mutex
	ticks   int
	faults  map[string]int
	actors  int
	arrived int
	steps   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{faults: make(map[string]int)}
}

func (m *countingMetrics) SetSimulationCounts(actors, arrived int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors = actors
	m.arrived = arrived
}

func (m *countingMetrics) IncTicks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func (m *countingMetrics) IncActorFault(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[reason]++
}

func (m *countingMetrics) ObserveStep(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps++
}

func (m *countingMetrics) snapshot() (ticks, actors, arrived int, faults map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	faults = make(map[string]int, len(m.faults))
	for k, v := range m.faults {
		faults[k] = v
	}
	return m.ticks, m.actors, m.arrived, faults
}

func TestInitializeStates_MovingActor(t *testing.T) {
	sim := &model.Simulation{
		ID:     "sim-1",
		Actors: []*model.Actor{movingActor("a1", 0, [2]float64{0, 0}, [2]float64{0, 1})},
	}
	e, _, _ := newTestEngine(t, sim)

	st, ok := e.State("a1")
	if !ok {
		t.Fatalf("no state for a1")
	}
	if st.Position.Lng != 0 || st.Position.Lat != 0 {
		t.Fatalf("initial position = %+v, want first waypoint", st.Position)
	}
	if st.Progress != 0 || st.SegmentIndex != 0 {
		t.Fatalf("initial state = %+v, want progress 0 on segment 0", st)
	}
	// Due north toward the second waypoint.
	if st.Heading != 0 {
		t.Fatalf("initial heading = %v, want 0 (north)", st.Heading)
	}
}

func TestInitializeStates_EastboundHeading(t *testing.T) {
	sim := &model.Simulation{
		ID:     "sim-1",
		Actors: []*model.Actor{movingActor("a1", 0, [2]float64{0, 0}, [2]float64{1, 0})},
	}
	e, _, _ := newTestEngine(t, sim)

	st, _ := e.State("a1")
	if st.Heading < 89.9 || st.Heading > 90.1 {
		t.Fatalf("eastbound initial heading = %v, want ~90", st.Heading)
	}
}

func TestInitializeStates_StationaryActor(t *testing.T) {
	sim := &model.Simulation{
		ID: "sim-1",
		Actors: []*model.Actor{
			{ID: "b1", Destinations: []model.Waypoint{{ID: "x", Longitude: 10, Latitude: 10}}},
			{ID: "b2"}, // no destinations at all
		},
	}
	e, _, _ := newTestEngine(t, sim)

	st, _ := e.State("b1")
	if st.Position.Lng != 10 || st.Position.Lat != 10 {
		t.Fatalf("stationary position = %+v, want its sole waypoint", st.Position)
	}
	if st.Heading != 0 {
		t.Fatalf("stationary heading = %v, want 0", st.Heading)
	}
	if _, ok := e.State("b2"); !ok {
		t.Fatalf("actor without destinations should still get a state entry")
	}
}

func TestInitializeStates_NilSimulation(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	if got := len(e.States()); got != 0 {
		t.Fatalf("nil simulation should leave no states, got %d", got)
	}
	// Stepping with no actors must not panic or fire completion.
	e.clock.Play()
	e.Step(5000)
	if st := e.clock.Snapshot(); !st.Playing {
		t.Fatalf("empty engine must not pause the clock")
	}
}

func TestStatesReturnsCopies(t *testing.T) {
	sim := &model.Simulation{
		ID:     "sim-1",
		Actors: []*model.Actor{movingActor("a1", 0, [2]float64{0, 0}, [2]float64{0, 1})},
	}
	e, clock, _ := newTestEngine(t, sim)

	states := e.States()
	mutated := states["a1"]
	mutated.Progress = 0.75
	states["a1"] = mutated

	clock.Play()
	st, _ := e.State("a1")
	if st.Progress == 0.75 {
		t.Fatalf("States must return copies, engine state was mutated externally")
	}
}

func TestMetricsCountsOnInit(t *testing.T) {
	metrics := newCountingMetrics()
	sim := &model.Simulation{
		ID: "sim-1",
		Actors: []*model.Actor{
			movingActor("a1", 0, [2]float64{0, 0}, [2]float64{0, 1}),
			{ID: "b1", Destinations: []model.Waypoint{{Longitude: 10, Latitude: 10}}},
		},
	}
	newTestEngine(t, sim, WithMetricsRecorder(metrics))

	_, actors, arrived, _ := metrics.snapshot()
	if actors != 2 {
		t.Fatalf("actor gauge = %d, want 2", actors)
	}
	// The stationary actor is trivially arrived from the start.
	if arrived != 1 {
		t.Fatalf("arrived gauge = %d, want 1", arrived)
	}
}
