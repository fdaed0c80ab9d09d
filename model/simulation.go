package model

// Simulation owns a set of actors. The engine treats a new Simulation as a
// wholesale replacement of its tracked actor set; it is never patched
// incrementally.
type Simulation struct {
	ID     string
	Slug   string
	Name   string
	Actors []*Actor
}

// Actor returns the actor with the given ID, or nil if not found.
func (s *Simulation) Actor(id string) *Actor {
	for _, a := range s.Actors {
		if a.ID == id {
			return a
		}
	}
	return nil
}
