package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/signalsfoundry/actor-motion-sim/model"
)

// ErrInvalidScenario indicates a scenario document failed validation.
var ErrInvalidScenario = errors.New("invalid scenario")

// JSON wire shapes for scenario documents. Kept unexported: the rest of
// the codebase works with model types only.
type scenarioDoc struct {
	ID     string     `json:"id"`
	Slug   string     `json:"slug"`
	Name   string     `json:"name"`
	Actors []actorDoc `json:"actors"`
}

type actorDoc struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Speed        float64       `json:"speed"`
	Destinations []waypointDoc `json:"destinations"`
}

type waypointDoc struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// LoadSimulationJSON parses a scenario document. Missing IDs are
// backfilled with fresh UUIDs and a missing slug is derived from the
// scenario name, so hand-written scenario files stay terse.
func LoadSimulationJSON(r io.Reader) (*model.Simulation, error) {
	var doc scenarioDoc
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return doc.toModel()
}

func (d *scenarioDoc) toModel() (*model.Simulation, error) {
	if len(d.Actors) == 0 {
		return nil, fmt.Errorf("%w: scenario has no actors", ErrInvalidScenario)
	}

	sim := &model.Simulation{
		ID:   d.ID,
		Slug: d.Slug,
		Name: d.Name,
	}
	if sim.ID == "" {
		sim.ID = uuid.NewString()
	}
	if sim.Slug == "" {
		sim.Slug = slugify(d.Name)
	}

	seen := make(map[string]struct{}, len(d.Actors))
	for i, a := range d.Actors {
		actor, err := a.toModel()
		if err != nil {
			return nil, fmt.Errorf("actor %d: %w", i, err)
		}
		if _, dup := seen[actor.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate actor id %q", ErrInvalidScenario, actor.ID)
		}
		seen[actor.ID] = struct{}{}
		sim.Actors = append(sim.Actors, actor)
	}
	return sim, nil
}

func (d *actorDoc) toModel() (*model.Actor, error) {
	actorType, err := parseActorType(d.Type)
	if err != nil {
		return nil, err
	}

	actor := &model.Actor{
		ID:    d.ID,
		Name:  d.Name,
		Type:  actorType,
		Speed: d.Speed,
	}
	if actor.ID == "" {
		actor.ID = uuid.NewString()
	}

	for i, wp := range d.Destinations {
		if wp.Longitude < -180 || wp.Longitude > 180 || wp.Latitude < -90 || wp.Latitude > 90 {
			return nil, fmt.Errorf("%w: destination %d out of range [%v, %v]",
				ErrInvalidScenario, i, wp.Longitude, wp.Latitude)
		}
		id := wp.ID
		if id == "" {
			id = uuid.NewString()
		}
		actor.Destinations = append(actor.Destinations, model.Waypoint{
			ID:        id,
			Name:      wp.Name,
			Longitude: wp.Longitude,
			Latitude:  wp.Latitude,
		})
	}
	return actor, nil
}

func parseActorType(raw string) (model.ActorType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "VEHICLE":
		return model.ActorVehicle, nil
	case "SHIP":
		return model.ActorShip, nil
	case "AIRCRAFT":
		return model.ActorAircraft, nil
	case "TRAIN":
		return model.ActorTrain, nil
	default:
		return "", fmt.Errorf("%w: unknown actor type %q", ErrInvalidScenario, raw)
	}
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
