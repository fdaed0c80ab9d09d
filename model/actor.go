package model

// ActorType labels the kind of simulated entity.
type ActorType string

const (
	ActorVehicle  ActorType = "VEHICLE"
	ActorShip     ActorType = "SHIP"
	ActorAircraft ActorType = "AIRCRAFT"
	ActorTrain    ActorType = "TRAIN"
)

// Waypoint is a named geographic point in an actor's route.
// Longitude and latitude are WGS84 degrees. Immutable once created.
type Waypoint struct {
	ID        string
	Name      string
	Longitude float64
	Latitude  float64
}

// ActorKind classifies an actor by its route shape. It is computed once
// from the destination list so callers don't re-check lengths everywhere.
type ActorKind int

const (
	// ActorStationary has fewer than two destinations and never moves.
	ActorStationary ActorKind = iota
	// ActorMoving follows segments between two or more destinations.
	ActorMoving
)

// Actor is a simulated moving entity with an ordered route of waypoints.
// The destination list does not change during playback; only the engine's
// animation state for the actor mutates.
type Actor struct {
	ID           string
	Name         string
	Type         ActorType
	Destinations []Waypoint

	// Speed is an optional per-actor progress multiplier. Zero or
	// negative values are treated as the default 1.0.
	Speed float64
}

// Kind reports whether the actor is stationary or moving.
func (a *Actor) Kind() ActorKind {
	if len(a.Destinations) < 2 {
		return ActorStationary
	}
	return ActorMoving
}

// SegmentCount returns the number of consecutive-waypoint segments.
func (a *Actor) SegmentCount() int {
	if len(a.Destinations) < 2 {
		return 0
	}
	return len(a.Destinations) - 1
}

// SpeedMultiplier returns the actor's speed with the 1.0 default applied.
func (a *Actor) SpeedMultiplier() float64 {
	if a.Speed <= 0 {
		return 1.0
	}
	return a.Speed
}
