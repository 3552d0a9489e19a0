// Package math3d provides the float32 math primitives shared by the
// physics and rendering cores: vectors, quaternions, matrices and
// axis-aligned bounding boxes. Right-handed, Y-up, column-major.
package math3d

import "github.com/chewxy/math32"

// Vec3 is a three-component float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is shorthand for constructing a Vec3.
func V3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// Zero3 is the zero vector.
var Zero3 = Vec3{}

// Up is the world up axis (Y-up convention).
var Up = Vec3{Y: 1}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// MulComp multiplies component-wise.
func (v Vec3) MulComp(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

func (v Vec3) Dot(o Vec3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float32 { return math32.Sqrt(v.Dot(v)) }

func (v Vec3) LengthSq() float32 { return v.Dot(v) }

// Normalize returns the unit vector, or the zero vector when the input is
// degenerate (length below epsilon).
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < 1e-8 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Lerp linearly interpolates from v to o by t.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

// Abs returns the component-wise absolute value.
func (v Vec3) Abs() Vec3 {
	return Vec3{math32.Abs(v.X), math32.Abs(v.Y), math32.Abs(v.Z)}
}

// IsNaN reports whether any component is NaN.
func (v Vec3) IsNaN() bool {
	return math32.IsNaN(v.X) || math32.IsNaN(v.Y) || math32.IsNaN(v.Z)
}

// Clamp restricts a scalar to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
