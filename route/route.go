// Package route holds, per simulation, each actor's ordered waypoint
// list plus an optional detailed-path overlay pushed in by an external
// directions collaborator. It is an in-memory, thread-safe store in the
// same spirit as the knowledge bases elsewhere in this codebase.
package route

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/actor-motion-sim/geo"
	"github.com/signalsfoundry/actor-motion-sim/model"
)

var (
	// ErrActorNotFound indicates the actor has no route in the model.
	ErrActorNotFound = errors.New("actor not found in route model")
	// ErrNoSegment indicates the segment index is out of range for the actor.
	ErrNoSegment = errors.New("no such route segment")
)

// Segment is the path between two consecutive waypoints.
type Segment struct {
	Source model.Waypoint
	Target model.Waypoint
}

// EventType indicates what kind of change happened in the route model.
type EventType int

const (
	// EventRoutesReplaced fires when a new simulation's routes are loaded.
	EventRoutesReplaced EventType = iota
	// EventDetailedPathSet fires when a detailed path arrives for a segment.
	EventDetailedPathSet
)

// Event is emitted to subscribers when the route model changes.
type Event struct {
	Type         EventType
	ActorID      string
	SegmentIndex int
}

// Model stores actor routes and detailed-path overlays.
type Model struct {
	mu sync.RWMutex

	routes map[string][]model.Waypoint

	// detailed maps "{actorID}-segment-{i}" to a denser polyline refining
	// that segment. Slices are stored copy-on-write so a concurrent Step
	// either sees the old fallback or the complete new path.
	detailed map[string][]geo.Point

	subs []func(Event)
}

// NewModel constructs an empty route model.
func NewModel() *Model {
	return &Model{
		routes:   make(map[string][]model.Waypoint),
		detailed: make(map[string][]geo.Point),
	}
}

// pathKey builds the overlay key for an actor segment.
func pathKey(actorID string, segmentIndex int) string {
	return fmt.Sprintf("%s-segment-%d", actorID, segmentIndex)
}

// ReplaceRoutes replaces the whole route set from a simulation's actors
// and discards all detailed paths. Called when a simulation is loaded.
func (m *Model) ReplaceRoutes(sim *model.Simulation) {
	m.mu.Lock()
	m.routes = make(map[string][]model.Waypoint)
	m.detailed = make(map[string][]geo.Point)
	if sim != nil {
		for _, a := range sim.Actors {
			waypoints := append([]model.Waypoint{}, a.Destinations...)
			m.routes[a.ID] = waypoints
		}
	}
	m.notifyLocked(Event{Type: EventRoutesReplaced})
}

// SegmentCount returns the number of segments for an actor, or zero if
// the actor is unknown or stationary.
func (m *Model) SegmentCount(actorID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	waypoints := m.routes[actorID]
	if len(waypoints) < 2 {
		return 0
	}
	return len(waypoints) - 1
}

// Segment returns the source and target waypoints for a segment index.
func (m *Model) Segment(actorID string, segmentIndex int) (Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	waypoints, ok := m.routes[actorID]
	if !ok {
		return Segment{}, fmt.Errorf("segment lookup for %q: %w", actorID, ErrActorNotFound)
	}
	if segmentIndex < 0 || segmentIndex >= len(waypoints)-1 {
		return Segment{}, fmt.Errorf("segment %d of actor %q: %w", segmentIndex, actorID, ErrNoSegment)
	}
	return Segment{Source: waypoints[segmentIndex], Target: waypoints[segmentIndex+1]}, nil
}

// DetailedPath returns the overlay polyline for a segment, if present.
// The returned slice must be treated as read-only.
func (m *Model) DetailedPath(actorID string, segmentIndex int) ([]geo.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.detailed[pathKey(actorID, segmentIndex)]
	return path, ok
}

// SetDetailedPath installs an overlay polyline for a segment. The path
// is copied so later caller mutations cannot tear an in-flight read.
// Paths shorter than two vertices are ignored.
func (m *Model) SetDetailedPath(actorID string, segmentIndex int, path []geo.Point) {
	if len(path) < 2 {
		return
	}
	copied := append([]geo.Point{}, path...)

	m.mu.Lock()
	m.detailed[pathKey(actorID, segmentIndex)] = copied
	m.notifyLocked(Event{
		Type:         EventDetailedPathSet,
		ActorID:      actorID,
		SegmentIndex: segmentIndex,
	})
}

// Subscribe registers a callback for route model events. It returns an
// unsubscribe function.
func (m *Model) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
	idx := len(m.subs) - 1

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < 0 || idx >= len(m.subs) {
			return
		}
		m.subs = append(m.subs[:idx], m.subs[idx+1:]...)
		idx = -1
	}
}

// notifyLocked snapshots subscribers, releases the lock, and invokes
// callbacks outside of it. Callers must hold m.mu; it is released here.
func (m *Model) notifyLocked(event Event) {
	subs := append([]func(Event){}, m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
}
