package engine

import (
	"math"
	"testing"

	"github.com/signalsfoundry/actor-motion-sim/geo"
	"github.com/signalsfoundry/actor-motion-sim/model"
	"github.com/signalsfoundry/actor-motion-sim/playback"
)

// The basic two-actor run from the reference behaviour: a moving actor
// and a single-waypoint actor that must never block completion.
func TestTwoActorRun(t *testing.T) {
	sim := &model.Simulation{
		ID: "sim-1",
		Actors: []*model.Actor{
			movingActor("a", 1, [2]float64{0, 0}, [2]float64{0, 1}),
			{ID: "b", Destinations: []model.Waypoint{{ID: "bx", Longitude: 10, Latitude: 10}}},
		},
	}
	e, clock, _ := newTestEngine(t, sim)

	pauses := 0
	clock.Subscribe(func(st playback.State) {
		if st.Paused && !st.Playing && !st.Reset {
			pauses++
		}
	})

	a, _ := e.State("a")
	b, _ := e.State("b")
	if a.Position.Lng != 0 || a.Position.Lat != 0 {
		t.Fatalf("A initial position = %+v, want [0 0]", a.Position)
	}
	if b.Position.Lng != 10 || b.Position.Lat != 10 {
		t.Fatalf("B initial position = %+v, want [10 10]", b.Position)
	}

	clock.Play()
	for i := 0; i < 100; i++ {
		e.Step(5000)
		b, _ = e.State("b")
		if b.Position.Lng != 10 || b.Position.Lat != 10 {
			t.Fatalf("B moved to %+v during playback", b.Position)
		}
		a, _ = e.State("a")
		if a.Progress >= 1 {
			break
		}
	}

	if a.Progress < 1 {
		t.Fatalf("A never arrived, progress = %v", a.Progress)
	}
	if a.Position.Lng != 0 || math.Abs(a.Position.Lat-1) > 1e-9 {
		t.Fatalf("A final position = %+v, want [0 1]", a.Position)
	}
	if pauses != 1 {
		t.Fatalf("completion pause fired %d times, want exactly 1", pauses)
	}

	// Arrived actors keep the clock paused; re-playing and stepping must
	// not re-fire the completion pause.
	clock.Play()
	e.Step(5000)
	if pauses != 1 {
		t.Fatalf("completion pause re-fired after resume, count = %d", pauses)
	}
}

func TestCompletionMetrics(t *testing.T) {
	metrics := newCountingMetrics()
	sim := &model.Simulation{
		ID:     "sim-1",
		Actors: []*model.Actor{movingActor("a", 1, [2]float64{0, 0}, [2]float64{0, 1})},
	}
	e, clock, _ := newTestEngine(t, sim, WithMetricsRecorder(metrics))

	clock.Play()
	e.Step(5000)

	ticks, actors, arrived, _ := metrics.snapshot()
	if ticks != 1 {
		t.Fatalf("tick counter = %d, want 1", ticks)
	}
	if actors != 1 || arrived != 1 {
		t.Fatalf("counts = (%d actors, %d arrived), want (1, 1)", actors, arrived)
	}
}

func TestDistanceCompletionWeighting(t *testing.T) {
	// Segment 0 spans 3 degrees of equator, segment 1 spans 1 degree:
	// finishing segment 0 means 75% of the route by distance but only
	// 50% by segment count.
	sim := &model.Simulation{
		ID: "sim-1",
		Actors: []*model.Actor{movingActor("a", 1,
			[2]float64{0, 0}, [2]float64{3, 0}, [2]float64{4, 0})},
	}
	e, clock, _ := newTestEngine(t, sim)
	clock.Play()

	// One full-segment tick: transition to segment 1, progress 0.
	e.Step(5000)
	st, _ := e.State("a")
	if st.SegmentIndex != 1 || st.Progress != 0 {
		t.Fatalf("state after transition = %+v", st)
	}

	byDistance := e.DistanceCompletion("a")
	bySegments := e.SegmentCompletion("a")
	if math.Abs(byDistance-0.75) > 1e-6 {
		t.Fatalf("distance completion = %v, want 0.75", byDistance)
	}
	if math.Abs(bySegments-0.5) > 1e-9 {
		t.Fatalf("segment completion = %v, want 0.5", bySegments)
	}
	if e.FunctionallyArrived("a") {
		t.Fatalf("actor functionally arrived at 75%% distance completion")
	}

	// Finish the route.
	for i := 0; i < 10; i++ {
		e.Step(5000)
	}
	if got := e.DistanceCompletion("a"); math.Abs(got-1) > 1e-9 {
		t.Fatalf("final distance completion = %v, want 1", got)
	}
	if !e.FunctionallyArrived("a") {
		t.Fatalf("actor not functionally arrived after finishing route")
	}
}

func TestDistanceCompletionUsesDetailedPath(t *testing.T) {
	// Two equal 1-degree equator segments, but segment 0 carries a
	// dogleg overlay roughly twice the straight-line length. Finishing
	// segment 0 must count the overlay's distance, not the chord's.
	sim := &model.Simulation{
		ID: "sim-1",
		Actors: []*model.Actor{movingActor("a", 1,
			[2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})},
	}
	e, clock, routes := newTestEngine(t, sim)

	overlay := []geo.Point{
		{Lng: 0, Lat: 0},
		{Lng: 0.5, Lat: 0.866},
		{Lng: 1, Lat: 0},
	}
	routes.SetDetailedPath("a", 0, overlay)

	clock.Play()
	e.Step(5000)
	st, _ := e.State("a")
	if st.SegmentIndex != 1 || st.Progress != 0 {
		t.Fatalf("state after transition = %+v", st)
	}

	overlayLen := geo.PolylineLength(overlay)
	chordLen := geo.Distance(geo.Point{Lng: 1, Lat: 0}, geo.Point{Lng: 2, Lat: 0})
	want := overlayLen / (overlayLen + chordLen)

	got := e.DistanceCompletion("a")
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("distance completion = %v, want %v (overlay-weighted)", got, want)
	}
	// Sanity: the overlay makes segment 0 dominate the route.
	if got <= 0.5 {
		t.Fatalf("overlay-weighted completion = %v, should exceed the chord-weighted 0.5", got)
	}
}

func TestCompletionForStationaryAndUnknown(t *testing.T) {
	sim := &model.Simulation{
		ID: "sim-1",
		Actors: []*model.Actor{
			{ID: "b", Destinations: []model.Waypoint{{Longitude: 1, Latitude: 1}}},
		},
	}
	e, _, _ := newTestEngine(t, sim)

	if got := e.DistanceCompletion("b"); got != 1 {
		t.Fatalf("stationary distance completion = %v, want 1", got)
	}
	if got := e.SegmentCompletion("b"); got != 1 {
		t.Fatalf("stationary segment completion = %v, want 1", got)
	}
	if got := e.DistanceCompletion("nope"); got != 1 {
		t.Fatalf("unknown actor distance completion = %v, want 1", got)
	}
}
