package engine

import (
	"sync"

	"github.com/signalsfoundry/actor-motion-sim/geo"
)

// Adapter consumes the engine's animation states after every tick to
// drive a visual layer. Implementations receive copies and must never
// write back into engine state. Any visual smoothing an adapter adds is
// layered on top of, not a replacement for, the engine's output.
type Adapter interface {
	UpdateActor(actorID string, st AnimationState)
}

// Placement is a world-space pose for a 3D globe model: geocentric
// metres plus a heading for model orientation.
type Placement struct {
	Position geo.Vec3
	Heading  float64
}

// GlobeAdapter converts animation states into ECEF placements for a 3D
// globe view. It owns the geodetic-to-world-space conversion; altitude
// (terrain height, flight level) is this layer's concern, not the
// engine's.
type GlobeAdapter struct {
	mu         sync.RWMutex
	altMeters  float64
	placements map[string]Placement
}

// NewGlobeAdapter constructs an adapter placing models at the given
// altitude above the ellipsoid.
func NewGlobeAdapter(altMeters float64) *GlobeAdapter {
	return &GlobeAdapter{
		altMeters:  altMeters,
		placements: make(map[string]Placement),
	}
}

// UpdateActor implements Adapter.
func (g *GlobeAdapter) UpdateActor(actorID string, st AnimationState) {
	placement := Placement{
		Position: geo.ECEF(st.Position, g.altMeters),
		Heading:  st.Heading,
	}
	g.mu.Lock()
	g.placements[actorID] = placement
	g.mu.Unlock()
}

// Placement returns the last computed pose for an actor.
func (g *GlobeAdapter) Placement(actorID string) (Placement, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.placements[actorID]
	return p, ok
}
