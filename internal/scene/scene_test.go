package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix3d/internal/math3d"
	"helix3d/internal/physics"
)

func TestSpawnAndLookup(t *testing.T) {
	s := New("level")
	player := s.Spawn("player")
	player.Tags = []string{"actor"}
	crate := s.Spawn("crate")
	crate.Tags = []string{"prop", "actor"}

	assert.NotEqual(t, player.ID, crate.ID)
	assert.Same(t, player, s.Entity(player.ID))
	assert.Same(t, crate, s.FindByName("crate"))
	assert.Nil(t, s.FindByName("ghost"))
	assert.Len(t, s.FindByTag("actor"), 2)
	assert.Len(t, s.FindByTag("prop"), 1)

	s.Remove(player)
	assert.Nil(t, s.Entity(player.ID))
	assert.Len(t, s.Entities(), 1)
}

func TestSpawnDefaults(t *testing.T) {
	s := New("level")
	e := s.Spawn("thing")
	assert.True(t, e.Active)
	assert.Equal(t, math3d.QuatIdentity(), e.Transform.Rotation)
	assert.Equal(t, math3d.Vec3{X: 1, Y: 1, Z: 1}, e.Transform.Scale)
}

func TestSyncFromPhysicsInterpolates(t *testing.T) {
	w := physics.NewWorld(physics.Settings{}, nil)
	body := w.CreateBody(physics.Dynamic, math3d.Zero3)
	body.SetCollider(physics.NewSphereCollider(0.5))

	s := New("level")
	e := s.Spawn("ball")
	e.AttachBody(body)

	s.CapturePrevious()
	body.Position = math3d.Vec3{X: 2}

	s.SyncFromPhysics(0)
	assert.InDelta(t, 0, e.Transform.Position.X, 1e-5)
	s.SyncFromPhysics(0.5)
	assert.InDelta(t, 1, e.Transform.Position.X, 1e-5)
	s.SyncFromPhysics(1)
	assert.InDelta(t, 2, e.Transform.Position.X, 1e-5)
}

func TestSyncFollowsSimulation(t *testing.T) {
	w := physics.NewWorld(physics.DefaultSettings(), nil)
	ground := w.CreateBody(physics.Static, math3d.Zero3)
	ground.SetCollider(physics.NewPlaneCollider(math3d.Up))
	body := w.CreateBody(physics.Dynamic, math3d.Vec3{Y: 5})
	body.SetCollider(physics.NewSphereCollider(0.5))

	s := New("level")
	e := s.Spawn("ball")
	e.AttachBody(body)

	dt := w.Settings.FixedTimeStep
	for i := 0; i < 240; i++ {
		s.CapturePrevious()
		w.Step(dt)
		s.SyncFromPhysics(w.Alpha())
	}
	require.InDelta(t, 0.5, e.Transform.Position.Y, 0.05, "render transform tracks the resting ball")
}
