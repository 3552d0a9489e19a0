package math3d

import "github.com/chewxy/math32"

// Quat is a unit quaternion stored as (w, x, y, z).
// Composition is left-to-right: (a.Mul(b)).Rotate(v) rotates v by b, then a.
type Quat struct {
	W, X, Y, Z float32
}

// QuatIdentity is the no-rotation quaternion.
func QuatIdentity() Quat { return Quat{W: 1} }

// QuatFromAxisAngle builds a rotation of angle radians about axis.
// The axis need not be normalized.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	axis = axis.Normalize()
	half := angle * 0.5
	s := math32.Sin(half)
	return Quat{
		W: math32.Cos(half),
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

// Mul is the Hamilton product q*o.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Conjugate returns the inverse rotation for unit quaternions.
func (q Quat) Conjugate() Quat { return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z} }

// Rotate applies the rotation to v: q v q⁻¹.
func (q Quat) Rotate(v Vec3) Vec3 {
	// t = 2 * (q.xyz × v); v' = v + w*t + q.xyz × t
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

func (q Quat) Length() float32 {
	return math32.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize renormalizes to unit length; a degenerate quaternion becomes
// identity.
func (q Quat) Normalize() Quat {
	l := q.Length()
	if l < 1e-8 {
		return QuatIdentity()
	}
	inv := 1 / l
	return Quat{W: q.W * inv, X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv}
}

// Dot is the four-component dot product.
func (q Quat) Dot(o Quat) float32 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

// Nlerp interpolates along the shortest arc and renormalizes. Good enough
// for frame interpolation where the per-step rotation is small.
func (q Quat) Nlerp(o Quat, t float32) Quat {
	if q.Dot(o) < 0 {
		o = Quat{W: -o.W, X: -o.X, Y: -o.Y, Z: -o.Z}
	}
	return Quat{
		W: q.W + (o.W-q.W)*t,
		X: q.X + (o.X-q.X)*t,
		Y: q.Y + (o.Y-q.Y)*t,
		Z: q.Z + (o.Z-q.Z)*t,
	}.Normalize()
}

// IsNaN reports whether any component is NaN.
func (q Quat) IsNaN() bool {
	return math32.IsNaN(q.W) || math32.IsNaN(q.X) || math32.IsNaN(q.Y) || math32.IsNaN(q.Z)
}

// Integrate advances q by angular velocity omega (rad/s) over dt seconds
// using the exact exponential map: normalize(exp(omega*dt/2) * q).
func (q Quat) Integrate(omega Vec3, dt float32) Quat {
	half := omega.Scale(dt * 0.5)
	angle := half.Length()
	var dq Quat
	if angle < 1e-6 {
		// small-angle expansion keeps the update stable near rest
		dq = Quat{W: 1, X: half.X, Y: half.Y, Z: half.Z}
	} else {
		s := math32.Sin(angle) / angle
		dq = Quat{W: math32.Cos(angle), X: half.X * s, Y: half.Y * s, Z: half.Z * s}
	}
	return dq.Mul(q).Normalize()
}

// ToAxisAngle decomposes the quaternion into a rotation axis and angle in
// radians. Identity yields the up axis and zero angle.
func (q Quat) ToAxisAngle() (Vec3, float32) {
	qn := q.Normalize()
	if qn.W > 1 {
		qn.W = 1
	} else if qn.W < -1 {
		qn.W = -1
	}
	angle := 2 * math32.Acos(qn.W)
	s := math32.Sqrt(1 - qn.W*qn.W)
	if s < 1e-6 {
		return Up, 0
	}
	return Vec3{qn.X / s, qn.Y / s, qn.Z / s}, angle
}
