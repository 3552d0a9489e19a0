// Package scene holds the entity layer bridging physics bodies to rendering.
package scene

import (
	"helix3d/internal/math3d"
	"helix3d/internal/physics"
)

// Transform is an entity's render pose.
type Transform struct {
	Position math3d.Vec3
	Rotation math3d.Quat
	Scale    math3d.Vec3
}

// Entity is a named object in the scene. Entities with a Body follow the
// physics simulation; the rest keep whatever transform they were given.
type Entity struct {
	ID     uint32
	Name   string
	Tags   []string
	Active bool

	Transform Transform

	Body *physics.RigidBody

	// UserData is an opaque slot for whatever the caller hangs off the
	// entity, a mesh handle or game state.
	UserData any

	// pose at the previous fixed tick, for interpolation
	prevPosition math3d.Vec3
	prevRotation math3d.Quat
}

// HasTag reports whether the entity carries the tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AttachBody ties the entity to a rigid body and snaps both poses to it.
func (e *Entity) AttachBody(b *physics.RigidBody) {
	e.Body = b
	e.Transform.Position = b.Position
	e.Transform.Rotation = b.Rotation
	e.prevPosition = b.Position
	e.prevRotation = b.Rotation
}

// Scene is an ordered set of entities.
type Scene struct {
	Name     string
	entities []*Entity
	byID     map[uint32]*Entity
	nextID   uint32
}

// New creates an empty scene.
func New(name string) *Scene {
	return &Scene{
		Name:   name,
		byID:   make(map[uint32]*Entity),
		nextID: 1,
	}
}

// Spawn adds a named entity with an identity transform.
func (s *Scene) Spawn(name string) *Entity {
	e := &Entity{
		ID:     s.nextID,
		Name:   name,
		Active: true,
		Transform: Transform{
			Rotation: math3d.QuatIdentity(),
			Scale:    math3d.Vec3{X: 1, Y: 1, Z: 1},
		},
		prevRotation: math3d.QuatIdentity(),
	}
	s.nextID++
	s.entities = append(s.entities, e)
	s.byID[e.ID] = e
	return e
}

// Remove detaches the entity from the scene.
func (s *Scene) Remove(e *Entity) {
	for i, existing := range s.entities {
		if existing == e {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			delete(s.byID, e.ID)
			return
		}
	}
}

// Entity looks an entity up by ID.
func (s *Scene) Entity(id uint32) *Entity { return s.byID[id] }

// Entities returns the live entities in spawn order. Callers must not mutate
// the slice.
func (s *Scene) Entities() []*Entity { return s.entities }

// FindByName returns the first entity with the name, or nil.
func (s *Scene) FindByName(name string) *Entity {
	for _, e := range s.entities {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindByTag returns all entities carrying the tag.
func (s *Scene) FindByTag(tag string) []*Entity {
	var result []*Entity
	for _, e := range s.entities {
		if e.HasTag(tag) {
			result = append(result, e)
		}
	}
	return result
}

// CapturePrevious records body poses before the world steps, so render
// transforms can interpolate between ticks.
func (s *Scene) CapturePrevious() {
	for _, e := range s.entities {
		if e.Body == nil {
			continue
		}
		e.prevPosition = e.Body.Position
		e.prevRotation = e.Body.Rotation
	}
}

// SyncFromPhysics writes interpolated body poses into the render transforms.
// alpha is the fraction of the fixed step left in the accumulator, from
// World.Alpha.
func (s *Scene) SyncFromPhysics(alpha float32) {
	for _, e := range s.entities {
		if e.Body == nil || !e.Active {
			continue
		}
		e.Transform.Position = e.prevPosition.Lerp(e.Body.Position, alpha)
		e.Transform.Rotation = e.prevRotation.Nlerp(e.Body.Rotation, alpha)
	}
}
