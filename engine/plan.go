package engine

import (
	"context"
	"math"

	"github.com/signalsfoundry/actor-motion-sim/geo"
	"github.com/signalsfoundry/actor-motion-sim/internal/logging"
	"github.com/signalsfoundry/actor-motion-sim/model"
)

// motionPlan computes one actor's animation state per tick. The two
// implementations are chosen once at initialization from the actor's
// route shape, so the step path never re-checks waypoint counts.
type motionPlan interface {
	// Initialize resets st to the plan's starting state.
	Initialize(st *AnimationState)
	// Step advances st by one tick of deltaMs real time at the given
	// playback speed multiplier.
	Step(st *AnimationState, deltaMs, clockSpeed float64)
	// Arrived reports whether the plan has nothing further to do.
	Arrived(st *AnimationState) bool
}

// newMotionPlan chooses the appropriate plan for an actor.
func newMotionPlan(e *Engine, actor *model.Actor) motionPlan {
	if actor.Kind() == model.ActorStationary {
		var at geo.Point
		if len(actor.Destinations) == 1 {
			at = waypointPoint(actor.Destinations[0])
		}
		return &stationaryPlan{at: at}
	}
	return &routePlan{
		engine:      e,
		actorID:     actor.ID,
		speed:       actor.SpeedMultiplier(),
		lastSegment: actor.SegmentCount() - 1,
		final:       waypointPoint(actor.Destinations[len(actor.Destinations)-1]),
	}
}

// stationaryPlan pins an actor with fewer than two waypoints at its
// sole destination (or the origin when it has none). It is trivially
// complete so it never blocks the all-arrived pause.
type stationaryPlan struct {
	at geo.Point
}

func (p *stationaryPlan) Initialize(st *AnimationState) {
	*st = AnimationState{Position: p.at}
}

func (p *stationaryPlan) Step(st *AnimationState, deltaMs, clockSpeed float64) {}

func (p *stationaryPlan) Arrived(st *AnimationState) bool { return true }

// routePlan advances an actor along its waypoint segments, sampling a
// detailed path when the route model has one and falling back to
// great-circle interpolation otherwise.
type routePlan struct {
	engine      *Engine
	actorID     string
	speed       float64
	lastSegment int
	final       geo.Point
}

func (p *routePlan) Initialize(st *AnimationState) {
	seg, err := p.engine.routes.Segment(p.actorID, 0)
	if err != nil {
		*st = AnimationState{}
		return
	}
	heading := 0.0
	if h, ok := geo.Bearing(waypointPoint(seg.Source), waypointPoint(seg.Target)); ok {
		heading = h
	}
	*st = AnimationState{
		Position: waypointPoint(seg.Source),
		Heading:  heading,
	}
}

func (p *routePlan) Arrived(st *AnimationState) bool {
	return st.SegmentIndex >= p.lastSegment && st.Progress >= 1
}

func (p *routePlan) Step(st *AnimationState, deltaMs, clockSpeed float64) {
	if p.Arrived(st) {
		// Reaffirm the snap; no further motion.
		st.Progress = 1
		st.Position = p.final
		return
	}

	delta := deltaMs * p.speed * clockSpeed * p.engine.progressRate
	potential := st.Progress + delta

	if potential >= 1 && st.SegmentIndex < p.lastSegment {
		// Segment transition. The overflow fraction of this tick is
		// discarded, matching the reference behaviour: a small, bounded
		// stutter at segment boundaries in exchange for exact
		// tick-count reproducibility.
		next := st.SegmentIndex + 1
		seg, err := p.engine.routes.Segment(p.actorID, next)
		if err != nil {
			p.fault(st, "segment_lookup", err.Error())
			return
		}
		source := waypointPoint(seg.Source)
		target := waypointPoint(seg.Target)
		if !source.Valid() || !target.Valid() {
			p.fault(st, "invalid_coordinates", "segment endpoints are not finite coordinates")
			return
		}

		st.SegmentIndex = next
		st.Progress = 0
		st.Position = source
		if h, ok := geo.Bearing(source, target); ok {
			st.Heading = h
		}
		return
	}

	seg, err := p.engine.routes.Segment(p.actorID, st.SegmentIndex)
	if err != nil {
		p.fault(st, "segment_lookup", err.Error())
		return
	}
	source := waypointPoint(seg.Source)
	target := waypointPoint(seg.Target)
	if !source.Valid() || !target.Valid() {
		p.fault(st, "invalid_coordinates", "segment endpoints are not finite coordinates")
		return
	}

	st.Progress = math.Min(1, potential)
	st.Position = p.sample(st.SegmentIndex, source, target, st.Progress)

	// Look-ahead heading: aim at a sample slightly further along the
	// same path. Degenerate displacement keeps the previous heading.
	lookAt := p.sample(st.SegmentIndex, source, target, math.Min(1, st.Progress+p.engine.lookAhead))
	if h, ok := geo.Bearing(st.Position, lookAt); ok {
		st.Heading = h
	}

	if p.Arrived(st) {
		st.Position = p.final
	}
}

// sample evaluates the actor's position at fraction t of the given
// segment, preferring the detailed path overlay when one exists. A
// path arriving mid-playback is picked up on the next tick; frames
// already computed are not corrected retroactively.
func (p *routePlan) sample(segmentIndex int, source, target geo.Point, t float64) geo.Point {
	if path, ok := p.engine.routes.DetailedPath(p.actorID, segmentIndex); ok {
		return geo.PositionAlongPolyline(path, t)
	}
	return geo.PositionAlongGreatCircle(source, target, t)
}

// fault freezes the actor at its previous valid state for this tick and
// reports the condition to the diagnostics sink.
func (p *routePlan) fault(st *AnimationState, reason, detail string) {
	if p.engine.metrics != nil {
		p.engine.metrics.IncActorFault(reason)
	}
	p.engine.log.Warn(context.Background(), "actor step skipped",
		logging.String("actor_id", p.actorID),
		logging.String("reason", reason),
		logging.String("detail", detail),
		logging.Int("segment", st.SegmentIndex),
	)
}
