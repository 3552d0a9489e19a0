package physics

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix3d/internal/math3d"
)

func newTestWorld() *World {
	return NewWorld(DefaultSettings(), nil)
}

// stepFor advances the world by whole fixed ticks for the given duration.
func stepFor(w *World, seconds float32) {
	ticks := int(seconds / w.Settings.FixedTimeStep)
	for i := 0; i < ticks; i++ {
		w.Step(w.Settings.FixedTimeStep)
	}
}

func addGround(w *World) *RigidBody {
	ground := w.CreateBody(Static, math3d.Zero3)
	ground.SetCollider(NewPlaneCollider(math3d.Up))
	return ground
}

func TestStepAccumulator(t *testing.T) {
	w := newTestWorld()
	b := w.CreateBody(Dynamic, math3d.Vec3{Y: 100})
	b.SetCollider(NewSphereCollider(0.5))
	b.CanSleep = false

	// 0.1s of wall time is exactly 6 ticks at 1/60
	w.Step(0.1)
	expected := -9.81 * 6 * w.Settings.FixedTimeStep
	assert.InDelta(t, expected, b.LinearVelocity.Y, 1e-3)

	// a huge delta is clamped to MaxDeltaTime
	before := b.LinearVelocity.Y
	w.Step(100)
	maxTicks := int(w.Settings.MaxDeltaTime / w.Settings.FixedTimeStep)
	assert.Less(t, before-b.LinearVelocity.Y, 9.81*float32(maxTicks+1)*w.Settings.FixedTimeStep)
}

func TestFreeFallDistance(t *testing.T) {
	w := newTestWorld()
	b := w.CreateBody(Dynamic, math3d.Vec3{Y: 100})
	b.SetCollider(NewSphereCollider(0.5))
	b.CanSleep = false

	stepFor(w, 1)
	// symplectic Euler falls slightly further than the analytic 4.905m
	assert.InDelta(t, -4.9, b.Position.Y-100, 0.2)
}

func TestSphereRestsOnPlane(t *testing.T) {
	w := newTestWorld()
	addGround(w)
	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 5})
	ball.SetCollider(NewSphereCollider(0.5))

	stepFor(w, 8)

	assert.True(t, ball.IsSleeping(), "ball should settle and sleep")
	assert.InDelta(t, 0.5, ball.Position.Y, 0.03)
	assert.InDelta(t, 0, ball.Position.X, 1e-4)
	assert.InDelta(t, 0, ball.Position.Z, 1e-4)
}

func TestRestitutionBounce(t *testing.T) {
	w := newTestWorld()
	ground := addGround(w)
	ground.Restitution = 0.8

	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 2})
	ball.SetCollider(NewSphereCollider(0.5))
	ball.Restitution = 0.8
	ball.CanSleep = false

	bounced := false
	var maxY float32
	for i := 0; i < 180; i++ {
		w.Step(w.Settings.FixedTimeStep)
		if !bounced && ball.LinearVelocity.Y > 0.1 {
			bounced = true
		}
		if bounced {
			if ball.Position.Y > maxY {
				maxY = ball.Position.Y
			}
			if ball.LinearVelocity.Y < 0 && ball.Position.Y < maxY-0.1 {
				break
			}
		}
	}
	require.True(t, bounced, "ball never bounced")
	// e=0.8 returns 64% of the 1.5m drop: apex near 1.46
	assert.Greater(t, maxY, float32(1.0))
	assert.Less(t, maxY, float32(1.8))
}

func TestBoxStackSettles(t *testing.T) {
	w := newTestWorld()
	addGround(w)

	half := math3d.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	var boxes []*RigidBody
	for i := 0; i < 3; i++ {
		b := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.55 + float32(i)*1.05})
		b.SetCollider(NewBoxCollider(half))
		boxes = append(boxes, b)
	}

	stepFor(w, 8)

	for i, b := range boxes {
		assert.True(t, b.IsSleeping(), "box %d should sleep", i)
		assert.InDelta(t, 0, b.Position.X, 0.1, "box %d drifted in x", i)
		assert.InDelta(t, 0, b.Position.Z, 0.1, "box %d drifted in z", i)
		assert.InDelta(t, 0.5+float32(i), b.Position.Y, 0.15, "box %d height", i)
	}
}

func TestSleepAndWake(t *testing.T) {
	w := newTestWorld()
	addGround(w)
	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.5})
	ball.SetCollider(NewSphereCollider(0.5))

	stepFor(w, 2)
	require.True(t, ball.IsSleeping())

	ball.ApplyImpulse(math3d.Vec3{Y: 5})
	assert.False(t, ball.IsSleeping())
	assert.InDelta(t, 5, ball.LinearVelocity.Y, 1e-5)
}

func TestContactWakesSleepingBody(t *testing.T) {
	w := newTestWorld()
	addGround(w)
	resting := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.5})
	resting.SetCollider(NewSphereCollider(0.5))

	stepFor(w, 2)
	require.True(t, resting.IsSleeping())

	falling := w.CreateBody(Dynamic, math3d.Vec3{Y: 3})
	falling.SetCollider(NewSphereCollider(0.5))

	stepFor(w, 1)
	assert.False(t, resting.IsSleeping(), "impact should wake the resting body")
}

func TestCollisionEnterExitEvents(t *testing.T) {
	w := NewWorld(Settings{}, nil) // zero gravity
	a := w.CreateBody(Dynamic, math3d.Vec3{X: -0.4})
	a.SetCollider(NewSphereCollider(0.5))
	a.LinearVelocity = math3d.Vec3{X: -1}
	a.CanSleep = false
	b := w.CreateBody(Dynamic, math3d.Vec3{X: 0.4})
	b.SetCollider(NewSphereCollider(0.5))
	b.LinearVelocity = math3d.Vec3{X: 1}
	b.CanSleep = false

	var enters, exits int
	w.OnCollisionEnter = func(x, y *RigidBody, info *CollisionInfo) {
		enters++
		assert.Equal(t, a.ID, x.ID)
		assert.Equal(t, b.ID, y.ID)
	}
	w.OnCollisionExit = func(x, y *RigidBody) { exits++ }

	stepFor(w, 2)

	assert.Equal(t, 1, enters, "overlapping pair enters once")
	assert.Equal(t, 1, exits, "pair exits once pushed apart")
	assert.Greater(t, b.Position.X-a.Position.X, float32(1.0), "spheres separated")
}

func TestTriggerEvents(t *testing.T) {
	w := newTestWorld()

	zone := w.CreateBody(Static, math3d.Zero3)
	trigger := NewBoxCollider(math3d.Vec3{X: 1, Y: 1, Z: 1})
	trigger.IsTrigger = true
	zone.SetCollider(trigger)

	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 3})
	ball.SetCollider(NewSphereCollider(0.2))
	ball.CanSleep = false

	var enters, exits int
	w.OnTriggerEnter = func(tr, other *RigidBody) {
		enters++
		assert.Equal(t, zone.ID, tr.ID)
		assert.Equal(t, ball.ID, other.ID)
	}
	w.OnTriggerExit = func(tr, other *RigidBody) {
		exits++
		assert.Equal(t, zone.ID, tr.ID)
	}

	stepFor(w, 2)

	assert.Equal(t, 1, enters, "ball entered the zone once")
	assert.Equal(t, 1, exits, "ball left the zone once")
	assert.Less(t, ball.Position.Y, float32(-2.0), "trigger must not block motion")
}

func TestLayerFiltering(t *testing.T) {
	w := NewWorld(Settings{}, nil)
	a := w.CreateBody(Dynamic, math3d.Vec3{X: -0.3})
	ca := NewSphereCollider(0.5)
	ca.Layer = 1
	ca.Mask = 2
	a.SetCollider(ca)
	a.CanSleep = false

	b := w.CreateBody(Dynamic, math3d.Vec3{X: 0.3})
	cb := NewSphereCollider(0.5)
	cb.Layer = 4 // not in a's mask
	cb.Mask = 1
	b.SetCollider(cb)
	b.CanSleep = false

	var events int
	w.OnCollisionEnter = func(x, y *RigidBody, info *CollisionInfo) { events++ }

	stepFor(w, 1)

	assert.Zero(t, events, "masked-out pair must not collide")
	assert.Equal(t, math3d.Zero3, a.LinearVelocity)
}

func TestKinematicPushesDynamic(t *testing.T) {
	w := NewWorld(Settings{}, nil)
	pusher := w.CreateBody(Kinematic, math3d.Vec3{X: -2})
	pusher.SetCollider(NewSphereCollider(0.5))
	pusher.LinearVelocity = math3d.Vec3{X: 2}

	target := w.CreateBody(Dynamic, math3d.Zero3)
	target.SetCollider(NewSphereCollider(0.5))
	target.CanSleep = false

	stepFor(w, 2)

	assert.Greater(t, target.Position.X, float32(0.5), "kinematic body should push the dynamic one")
	// kinematic bodies ignore collision response
	assert.InDelta(t, 2, pusher.LinearVelocity.X, 1e-5)
}

func TestDestroyBody(t *testing.T) {
	w := newTestWorld()
	a := w.CreateBody(Dynamic, math3d.Zero3)
	b := w.CreateBody(Dynamic, math3d.Vec3{X: 5})
	w.NewDistanceConstraint(a, b, a.Position, b.Position)

	require.Equal(t, 2, w.BodyCount())
	require.Len(t, w.Constraints(), 1)

	w.DestroyBody(a)

	assert.Equal(t, 1, w.BodyCount())
	assert.Nil(t, w.Body(a.ID))
	assert.Same(t, b, w.Body(b.ID))
	assert.Empty(t, w.Constraints(), "constraints referencing the body are removed")
}

func TestForceNaNGuard(t *testing.T) {
	w := newTestWorld()
	b := w.CreateBody(Dynamic, math3d.Zero3)
	b.SetCollider(NewSphereCollider(0.5))

	b.AddForce(math3d.Vec3{X: math32.NaN()})
	b.ApplyImpulse(math3d.Vec3{Y: math32.NaN()})

	assert.Equal(t, math3d.Zero3, b.LinearVelocity)
	w.Step(w.Settings.FixedTimeStep)
	assert.False(t, b.Position.IsNaN())
}

func TestDeterminism(t *testing.T) {
	build := func() *World {
		w := newTestWorld()
		addGround(w)
		for i := 0; i < 8; i++ {
			b := w.CreateBody(Dynamic, math3d.Vec3{
				X: float32(i%4)*1.2 - 1.8,
				Y: 3 + float32(i/4)*1.5,
				Z: float32(i%2) * 0.7,
			})
			if i%2 == 0 {
				b.SetCollider(NewSphereCollider(0.5))
			} else {
				b.SetCollider(NewBoxCollider(math3d.Vec3{X: 0.4, Y: 0.4, Z: 0.4}))
			}
		}
		return w
	}

	w1, w2 := build(), build()
	for i := 0; i < 240; i++ {
		w1.Step(w1.Settings.FixedTimeStep)
		w2.Step(w2.Settings.FixedTimeStep)
	}

	b1, b2 := w1.Bodies(), w2.Bodies()
	require.Equal(t, len(b1), len(b2))
	for i := range b1 {
		assert.Equal(t, b1[i].Position, b2[i].Position, "body %d position diverged", i)
		assert.Equal(t, b1[i].Rotation, b2[i].Rotation, "body %d rotation diverged", i)
	}
}

type failingBroadPhase struct{}

func (failingBroadPhase) Pairs(bodies []*RigidBody) ([][2]int, error) {
	return nil, errors.New("device lost")
}

func TestGPUBroadPhaseFallback(t *testing.T) {
	s := DefaultSettings()
	s.GPUBroadPhaseThreshold = 1
	w := NewWorld(s, nil)
	w.SetGPUBroadPhase(failingBroadPhase{})

	addGround(w)
	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 2})
	ball.SetCollider(NewSphereCollider(0.5))

	stepFor(w, 4)

	// the CPU sweep must have taken over: the ball still rests on the plane
	assert.InDelta(t, 0.5, ball.Position.Y, 0.05)
}

func TestQueryAABB(t *testing.T) {
	w := newTestWorld()
	a := w.CreateBody(Static, math3d.Zero3)
	a.SetCollider(NewSphereCollider(1))
	b := w.CreateBody(Static, math3d.Vec3{X: 10})
	b.SetCollider(NewSphereCollider(1))

	hits := w.QueryAABB(math3d.AABBFromCenter(math3d.Zero3, math3d.Vec3{X: 4, Y: 4, Z: 4}), 0)
	require.Len(t, hits, 1)
	assert.Same(t, a, hits[0])

	hits = w.QueryAABB(math3d.AABBFromCenter(math3d.Vec3{X: 5}, math3d.Vec3{X: 20, Y: 2, Z: 2}), 0)
	assert.Len(t, hits, 2)
}

func TestQuerySphere(t *testing.T) {
	w := newTestWorld()
	a := w.CreateBody(Static, math3d.Zero3)
	a.SetCollider(NewBoxCollider(math3d.Vec3{X: 1, Y: 1, Z: 1}))
	b := w.CreateBody(Static, math3d.Vec3{X: 6})
	b.SetCollider(NewBoxCollider(math3d.Vec3{X: 1, Y: 1, Z: 1}))

	hits := w.QuerySphere(math3d.Vec3{X: 2.5}, 2, 0)
	require.Len(t, hits, 1)
	assert.Same(t, a, hits[0])

	layered := w.CreateBody(Static, math3d.Vec3{X: 0.5})
	c := NewSphereCollider(0.5)
	c.Layer = 8
	layered.SetCollider(c)

	hits = w.QuerySphere(math3d.Zero3, 3, 8)
	require.Len(t, hits, 1)
	assert.Same(t, layered, hits[0])
}
