package math3d

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomUnitQuat(rng *rand.Rand) Quat {
	axis := Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
	if axis.Length() < 1e-3 {
		axis = Up
	}
	return QuatFromAxisAngle(axis, rng.Float32()*2*math32.Pi)
}

func randomVec3(rng *rand.Rand) Vec3 {
	return Vec3{rng.Float32()*20 - 10, rng.Float32()*20 - 10, rng.Float32()*20 - 10}
}

func TestQuatRotatePreservesLength(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		q := randomUnitQuat(rng)
		v := randomVec3(rng)
		assert.InDelta(t, v.Length(), q.Rotate(v).Length(), 1e-4)
	}
}

func TestQuatComposition(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		a := randomUnitQuat(rng)
		b := randomUnitQuat(rng)
		v := randomVec3(rng)

		composed := a.Mul(b).Rotate(v)
		sequential := a.Rotate(b.Rotate(v))

		assert.InDelta(t, sequential.X, composed.X, 1e-3)
		assert.InDelta(t, sequential.Y, composed.Y, 1e-3)
		assert.InDelta(t, sequential.Z, composed.Z, 1e-3)
	}
}

func TestQuatAxisAngleRoundTrip(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 1, 0}, math32.Pi/2)
	v := q.Rotate(Vec3{1, 0, 0})
	// 90° about Y takes +X to -Z
	assert.InDelta(t, 0, v.X, 1e-5)
	assert.InDelta(t, -1, v.Z, 1e-5)

	axis, angle := q.ToAxisAngle()
	assert.InDelta(t, 1, axis.Y, 1e-5)
	assert.InDelta(t, math32.Pi/2, angle, 1e-5)
}

func TestQuatIntegrate(t *testing.T) {
	// Integrating a constant spin of π rad/s about Y for 1s in small steps
	// must end up at a half turn.
	q := QuatIdentity()
	omega := Vec3{0, math32.Pi, 0}
	const steps = 1000
	for i := 0; i < steps; i++ {
		q = q.Integrate(omega, 1.0/steps)
	}
	v := q.Rotate(Vec3{1, 0, 0})
	assert.InDelta(t, -1, v.X, 1e-3)
	assert.InDelta(t, 1, q.Length(), 1e-5)
}

func TestAABBIntersectsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		a := AABBFromCenter(randomVec3(rng), Vec3{1 + rng.Float32()*3, 1 + rng.Float32()*3, 1 + rng.Float32()*3})
		b := AABBFromCenter(randomVec3(rng), Vec3{1 + rng.Float32()*3, 1 + rng.Float32()*3, 1 + rng.Float32()*3})
		assert.Equal(t, a.Intersects(b), b.Intersects(a))
	}
}

func TestAABBExpand(t *testing.T) {
	a := AABBFromCenter(Zero3, Vec3{2, 2, 2})
	a = a.ExpandPoint(Vec3{5, 0, 0})
	assert.Equal(t, float32(5), a.Max.X)
	assert.Equal(t, float32(-1), a.Min.X)

	b := a.ExpandMargin(0.5)
	assert.Equal(t, float32(5.5), b.Max.X)
	assert.True(t, b.Contains(Vec3{5.2, 0, 0}))
}

func TestAABBRaySlab(t *testing.T) {
	box := AABBFromCenter(Vec3{5, 0, 0}, Vec3{2, 2, 2})

	tNear, tFar, hit := box.IntersectRay(Zero3, Vec3{1, 0, 0}, 100)
	require.True(t, hit)
	assert.InDelta(t, 4, tNear, 1e-5)
	assert.InDelta(t, 6, tFar, 1e-5)

	// clipped by maxDistance
	_, _, hit = box.IntersectRay(Zero3, Vec3{1, 0, 0}, 3)
	assert.False(t, hit)

	// parallel miss
	_, _, hit = box.IntersectRay(Vec3{0, 5, 0}, Vec3{1, 0, 0}, 100)
	assert.False(t, hit)

	// origin inside
	tNear, _, hit = box.IntersectRay(Vec3{5, 0, 0}, Vec3{1, 0, 0}, 100)
	require.True(t, hit)
	assert.Equal(t, float32(0), tNear)
}

func TestMat3InertiaRotation(t *testing.T) {
	// Rotating a diagonal tensor by R as R·I·Rᵀ must keep it symmetric.
	q := QuatFromAxisAngle(Vec3{1, 2, 3}, 0.7)
	r := Mat3FromQuat(q)
	inertia := Mat3Diagonal(Vec3{1, 2, 3})
	world := r.Mul(inertia).Mul(r.Transpose())

	assert.InDelta(t, world[1], world[3], 1e-5)
	assert.InDelta(t, world[2], world[6], 1e-5)
	assert.InDelta(t, world[5], world[7], 1e-5)
}

func TestMat4ColumnMajor(t *testing.T) {
	m := Mat4Translate(Vec3{1, 2, 3})
	// translation lives in the fourth column
	assert.Equal(t, float32(1), m[12])
	assert.Equal(t, float32(2), m[13])
	assert.Equal(t, float32(3), m[14])

	p := m.MulPoint(Vec3{10, 0, 0})
	assert.Equal(t, Vec3{11, 2, 3}, p)
}

func TestMat4QuatAgreement(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 100; i++ {
		q := randomUnitQuat(rng)
		v := randomVec3(rng)
		mv := Mat4FromQuat(q).MulDir(v)
		qv := q.Rotate(v)
		assert.InDelta(t, qv.X, mv.X, 1e-3)
		assert.InDelta(t, qv.Y, mv.Y, 1e-3)
		assert.InDelta(t, qv.Z, mv.Z, 1e-3)
	}
}
