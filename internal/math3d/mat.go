package math3d

import "github.com/chewxy/math32"

// Mat3 is a 3×3 float32 matrix, column-major: element (row r, col c) is
// M[c*3+r]. Used for inertia tensors.
type Mat3 [9]float32

// Mat3Identity returns the identity matrix.
func Mat3Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Mat3Diagonal builds a diagonal matrix from d.
func Mat3Diagonal(d Vec3) Mat3 {
	return Mat3{d.X, 0, 0, 0, d.Y, 0, 0, 0, d.Z}
}

// Mat3FromQuat converts a unit quaternion to a rotation matrix.
func Mat3FromQuat(q Quat) Mat3 {
	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z
	return Mat3{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy),
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx),
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy),
	}
}

func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for c := 0; c < 3; c++ {
		for row := 0; row < 3; row++ {
			r[c*3+row] = m[row]*o[c*3] + m[3+row]*o[c*3+1] + m[6+row]*o[c*3+2]
		}
	}
	return r
}

func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		Y: m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		Z: m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Mat4 is a 4×4 float32 matrix, column-major: element (row r, col c) is
// M[c*4+r].
type Mat4 [16]float32

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// Mat4Translate builds a translation matrix.
func Mat4Translate(t Vec3) Mat4 {
	m := Mat4Identity()
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// Mat4FromQuat converts a unit quaternion to a rotation matrix.
func Mat4FromQuat(q Quat) Mat4 {
	r := Mat3FromQuat(q)
	m := Mat4Identity()
	m[0], m[1], m[2] = r[0], r[1], r[2]
	m[4], m[5], m[6] = r[3], r[4], r[5]
	m[8], m[9], m[10] = r[6], r[7], r[8]
	return m
}

// Mat4TRS composes translation, rotation and scale.
func Mat4TRS(t Vec3, r Quat, s Vec3) Mat4 {
	m := Mat4FromQuat(r)
	for i := 0; i < 3; i++ {
		m[i] *= s.X
		m[4+i] *= s.Y
		m[8+i] *= s.Z
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			r[c*4+row] = m[row]*o[c*4] + m[4+row]*o[c*4+1] + m[8+row]*o[c*4+2] + m[12+row]*o[c*4+3]
		}
	}
	return r
}

// MulPoint transforms a point (w=1).
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12],
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13],
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14],
	}
}

// MulDir transforms a direction (w=0).
func (m Mat4) MulDir(v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// Mat4Perspective builds a right-handed perspective projection.
// fovY is in radians; depth range [0,1] (WebGPU convention).
func Mat4Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY*0.5)
	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = near * far / (near - far)
	return m
}

// Mat4LookAt builds a right-handed view matrix.
func Mat4LookAt(eye, target, up Vec3) Mat4 {
	fwd := target.Sub(eye).Normalize()
	right := fwd.Cross(up).Normalize()
	u := right.Cross(fwd)
	m := Mat4Identity()
	m[0], m[4], m[8] = right.X, right.Y, right.Z
	m[1], m[5], m[9] = u.X, u.Y, u.Z
	m[2], m[6], m[10] = -fwd.X, -fwd.Y, -fwd.Z
	m[12] = -right.Dot(eye)
	m[13] = -u.Dot(eye)
	m[14] = fwd.Dot(eye)
	return m
}
