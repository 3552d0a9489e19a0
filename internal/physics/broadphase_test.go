package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix3d/internal/math3d"
)

func TestBroadphasePlaneSkipsHash(t *testing.T) {
	w := newTestWorld()
	plane := w.CreateBody(Static, math3d.Zero3)
	plane.SetCollider(NewPlaneCollider(math3d.Up))

	near := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.4})
	near.SetCollider(NewSphereCollider(0.5))
	far := w.CreateBody(Dynamic, math3d.Vec3{Y: 50})
	far.SetCollider(NewSphereCollider(0.5))

	pairs := w.broadphase()
	require.Len(t, pairs, 1, "only the touching sphere pairs with the plane")
	assert.Equal(t, plane.ID, pairs[0].a.ID)
	assert.Equal(t, near.ID, pairs[0].b.ID)
}

func TestBroadphaseTiltedPlane(t *testing.T) {
	w := newTestWorld()
	n := math3d.Vec3{X: 1, Y: 1}.Normalize()
	plane := w.CreateBody(Static, math3d.Zero3)
	plane.SetCollider(NewPlaneCollider(n))
	ball := w.CreateBody(Dynamic, n.Scale(0.4))
	ball.SetCollider(NewSphereCollider(0.5))

	pairs := w.broadphase()
	require.Len(t, pairs, 1)
	assert.Equal(t, ball.ID, pairs[0].b.ID)
}

func TestBroadphaseStepWithPlaneCompletes(t *testing.T) {
	w := newTestWorld()
	plane := w.CreateBody(Static, math3d.Zero3)
	plane.SetCollider(NewPlaneCollider(math3d.Up))
	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 2})
	ball.SetCollider(NewSphereCollider(0.5))

	for i := 0; i < 240; i++ {
		w.Step(w.Settings.FixedTimeStep)
	}
	assert.InDelta(t, 0.5, ball.Position.Y, 0.05, "ball rests on the plane")
}

func TestBroadphaseHashStillPairsSmallBodies(t *testing.T) {
	w := newTestWorld()
	a := w.CreateBody(Dynamic, math3d.Zero3)
	a.SetCollider(NewSphereCollider(0.5))
	b := w.CreateBody(Dynamic, math3d.Vec3{X: 0.8})
	b.SetCollider(NewSphereCollider(0.5))
	c := w.CreateBody(Dynamic, math3d.Vec3{X: 100})
	c.SetCollider(NewSphereCollider(0.5))

	pairs := w.broadphase()
	require.Len(t, pairs, 1)
	assert.Equal(t, a.ID, pairs[0].a.ID)
	assert.Equal(t, b.ID, pairs[0].b.ID)
}

func TestCandidatePairOrderCanonical(t *testing.T) {
	pairs := [][2]int{{4, 7}, {0, 3}, {0, 1}, {2, 5}}
	sortCandidatePairs(pairs)
	assert.Equal(t, [][2]int{{0, 1}, {0, 3}, {2, 5}, {4, 7}}, pairs)
}
