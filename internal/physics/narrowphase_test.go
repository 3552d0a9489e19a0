package physics

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix3d/internal/math3d"
)

// assertNormalConvention checks that the contact normal points from A to B.
func assertNormalConvention(t *testing.T, info CollisionInfo) {
	t.Helper()
	d := info.BodyB.Position.Sub(info.BodyA.Position)
	assert.GreaterOrEqual(t, d.Dot(info.Normal), float32(0), "normal must point A→B")
	assert.InDelta(t, 1, info.Normal.Length(), 1e-4, "normal must be unit length")
	assert.GreaterOrEqual(t, info.Penetration, float32(0))
}

func pairBodies(w *World, makeA, makeB *Collider, posA, posB math3d.Vec3) (*RigidBody, *RigidBody) {
	a := w.CreateBody(Dynamic, posA)
	a.SetCollider(makeA)
	b := w.CreateBody(Dynamic, posB)
	b.SetCollider(makeB)
	return a, b
}

func TestSphereSphereContact(t *testing.T) {
	w := newTestWorld()
	a, b := pairBodies(w, NewSphereCollider(0.5), NewSphereCollider(0.5),
		math3d.Zero3, math3d.Vec3{X: 0.8})

	info, ok := collide(a, b)
	require.True(t, ok)
	assertNormalConvention(t, info)
	assert.InDelta(t, 0.2, info.Penetration, 1e-5)
	assert.InDelta(t, 0.5, info.Point.X, 1e-5)

	// swapped operands still give an A→B normal
	info2, ok := collide(b, a)
	require.True(t, ok)
	assertNormalConvention(t, info2)
	assert.InDelta(t, -1, info2.Normal.X, 1e-5)
}

func TestSphereSphereSeparated(t *testing.T) {
	w := newTestWorld()
	a, b := pairBodies(w, NewSphereCollider(0.5), NewSphereCollider(0.5),
		math3d.Zero3, math3d.Vec3{X: 1.1})
	_, ok := collide(a, b)
	assert.False(t, ok)
}

func TestSpherePlaneContact(t *testing.T) {
	w := newTestWorld()
	plane := w.CreateBody(Static, math3d.Zero3)
	plane.SetCollider(NewPlaneCollider(math3d.Up))
	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.4})
	ball.SetCollider(NewSphereCollider(0.5))

	info, ok := collide(ball, plane)
	require.True(t, ok)
	assertNormalConvention(t, info)
	assert.InDelta(t, 0.1, info.Penetration, 1e-5)
	assert.InDelta(t, -1, info.Normal.Y, 1e-5, "sphere→plane normal points down")

	info2, ok := collide(plane, ball)
	require.True(t, ok)
	assertNormalConvention(t, info2)
	assert.InDelta(t, 1, info2.Normal.Y, 1e-5)
}

func TestSphereBoxFaceContact(t *testing.T) {
	w := newTestWorld()
	box := w.CreateBody(Static, math3d.Zero3)
	box.SetCollider(NewBoxCollider(math3d.Vec3{X: 1, Y: 1, Z: 1}))
	ball := w.CreateBody(Dynamic, math3d.Vec3{X: 1.3})
	ball.SetCollider(NewSphereCollider(0.5))

	info, ok := collide(ball, box)
	require.True(t, ok)
	assertNormalConvention(t, info)
	assert.InDelta(t, -1, info.Normal.X, 1e-4)
	assert.InDelta(t, 0.2, info.Penetration, 1e-4)
	assert.InDelta(t, 1, info.Point.X, 1e-4, "contact on the box face")
}

func TestSphereInsideBox(t *testing.T) {
	w := newTestWorld()
	box := w.CreateBody(Static, math3d.Zero3)
	box.SetCollider(NewBoxCollider(math3d.Vec3{X: 2, Y: 1, Z: 2}))
	// closest face is +Y
	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.5})
	ball.SetCollider(NewSphereCollider(0.3))

	info, ok := collide(ball, box)
	require.True(t, ok)
	// escape axis is the face of minimum depth
	assert.InDelta(t, -1, info.Normal.Y, 1e-4)
	assert.Greater(t, info.Penetration, float32(0.5))
}

func TestBoxPlaneManifold(t *testing.T) {
	w := newTestWorld()
	plane := w.CreateBody(Static, math3d.Zero3)
	plane.SetCollider(NewPlaneCollider(math3d.Up))
	box := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.4})
	box.SetCollider(NewBoxCollider(math3d.Vec3{X: 0.5, Y: 0.5, Z: 0.5}))

	info, ok := collide(box, plane)
	require.True(t, ok)
	assertNormalConvention(t, info)
	assert.Len(t, info.Contacts, 4, "flat box on plane touches with four corners")
	assert.InDelta(t, 0.1, info.Penetration, 1e-5)
	for _, c := range info.Contacts {
		assert.InDelta(t, -0.1, c.Y, 1e-5)
	}
}

func TestBoxBoxSAT(t *testing.T) {
	w := newTestWorld()
	a, b := pairBodies(w,
		NewBoxCollider(math3d.Vec3{X: 1, Y: 1, Z: 1}),
		NewBoxCollider(math3d.Vec3{X: 1, Y: 1, Z: 1}),
		math3d.Zero3, math3d.Vec3{X: 1.5})

	info, ok := collide(a, b)
	require.True(t, ok)
	assertNormalConvention(t, info)
	assert.InDelta(t, 1, info.Normal.X, 1e-4)
	assert.InDelta(t, 0.5, info.Penetration, 1e-4)

	// rotate B 45° about Y: still overlapping, separating later when moved
	b.Rotation = math3d.QuatFromAxisAngle(math3d.Up, math32.Pi/4)
	_, ok = collide(a, b)
	assert.True(t, ok)

	b.Position = math3d.Vec3{X: 3}
	_, ok = collide(a, b)
	assert.False(t, ok)
}

func TestCapsuleSphereContact(t *testing.T) {
	w := newTestWorld()
	capsule := w.CreateBody(Dynamic, math3d.Zero3)
	capsule.SetCollider(NewCapsuleCollider(0.5, 1))
	ball := w.CreateBody(Dynamic, math3d.Vec3{X: 0.8, Y: 0.7})
	ball.SetCollider(NewSphereCollider(0.5))

	info, ok := collide(capsule, ball)
	require.True(t, ok)
	// closest segment point is (0, 0.7, 0), so the normal is pure +X
	assert.InDelta(t, 1, info.Normal.X, 1e-4)
	assert.InDelta(t, 0.2, info.Penetration, 1e-4)

	// sphere-first operand order: same contact, normal flipped to A→B
	info2, ok := collide(ball, capsule)
	require.True(t, ok)
	assertNormalConvention(t, info2)
	assert.InDelta(t, -1, info2.Normal.X, 1e-4)
	assert.InDelta(t, 0.2, info2.Penetration, 1e-4)
}

func TestCapsulePlaneContact(t *testing.T) {
	w := newTestWorld()
	plane := w.CreateBody(Static, math3d.Zero3)
	plane.SetCollider(NewPlaneCollider(math3d.Up))
	capsule := w.CreateBody(Dynamic, math3d.Vec3{Y: 1.3})
	capsule.SetCollider(NewCapsuleCollider(0.5, 1))

	info, ok := collide(capsule, plane)
	require.True(t, ok)
	assertNormalConvention(t, info)
	// only the lower end touches: one contact
	assert.Len(t, info.Contacts, 1)
	assert.InDelta(t, 0.2, info.Penetration, 1e-4)
}

func TestMeshSphereContact(t *testing.T) {
	// single upward-facing triangle in the XZ plane
	tri := []math3d.Vec3{
		{X: -2, Y: 0, Z: -2},
		{X: 2, Y: 0, Z: -2},
		{X: 0, Y: 0, Z: 2},
	}
	w := newTestWorld()
	ground := w.CreateBody(Static, math3d.Zero3)
	ground.SetCollider(NewMeshCollider(tri))
	ball := w.CreateBody(Dynamic, math3d.Vec3{Y: 0.4})
	ball.SetCollider(NewSphereCollider(0.5))

	info, ok := collide(ball, ground)
	require.True(t, ok)
	assert.InDelta(t, -1, info.Normal.Y, 1e-4)
	assert.InDelta(t, 0.1, info.Penetration, 1e-4)
}

func TestCompoundCollider(t *testing.T) {
	// dumbbell: two spheres offset along X
	left := NewSphereCollider(0.5)
	left.Offset = math3d.Vec3{X: -1}
	right := NewSphereCollider(0.5)
	right.Offset = math3d.Vec3{X: 1}

	w := newTestWorld()
	dumbbell := w.CreateBody(Dynamic, math3d.Zero3)
	dumbbell.SetCollider(NewCompoundCollider(left, right))

	ball := w.CreateBody(Dynamic, math3d.Vec3{X: 1.8})
	ball.SetCollider(NewSphereCollider(0.5))

	info, ok := collide(dumbbell, ball)
	require.True(t, ok)
	assert.InDelta(t, 1, info.Normal.X, 1e-4, "right child collides")
	assert.InDelta(t, 0.2, info.Penetration, 1e-4)

	// gap between the children is empty
	ball.Position = math3d.Vec3{Y: 1.2}
	_, ok = collide(dumbbell, ball)
	assert.False(t, ok)
}

func TestColliderBounds(t *testing.T) {
	c := NewBoxCollider(math3d.Vec3{X: 1, Y: 2, Z: 3})
	box := c.bounds(math3d.Vec3{X: 10}, math3d.QuatIdentity())
	assert.Equal(t, float32(9), box.Min.X)
	assert.Equal(t, float32(11), box.Max.X)
	assert.Equal(t, float32(-2), box.Min.Y)

	// rotating 90° about Y swaps the X and Z extents
	rot := math3d.QuatFromAxisAngle(math3d.Up, math32.Pi/2)
	box = c.bounds(math3d.Zero3, rot)
	assert.InDelta(t, 3, box.Max.X, 1e-4)
	assert.InDelta(t, 1, box.Max.Z, 1e-4)
}

func TestLocalInertia(t *testing.T) {
	sphere := NewSphereCollider(1)
	inv := sphere.localInertia(2.5)
	assert.InDelta(t, 1.0, inv.X, 1e-5) // 1/(0.4·2.5·1) = 1

	boxc := NewBoxCollider(math3d.Vec3{X: 1, Y: 1, Z: 1})
	inv = boxc.localInertia(3)
	assert.InDelta(t, 0.5, inv.X, 1e-5) // 1/(3/3·(1+1)) = 0.5

	plane := NewPlaneCollider(math3d.Up)
	assert.Equal(t, math3d.Zero3, plane.localInertia(5))
}
