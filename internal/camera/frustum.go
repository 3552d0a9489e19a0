package camera

import (
	"github.com/chewxy/math32"

	"helix3d/internal/math3d"
)

// plane is ax + by + cz + d = 0 with the normal pointing inside the frustum.
type plane struct {
	normal math3d.Vec3
	d      float32
}

func (p plane) normalize() plane {
	l := p.normal.Length()
	if l < 1e-8 {
		return p
	}
	return plane{normal: p.normal.Scale(1 / l), d: p.d / l}
}

// Frustum is the six planes of a view volume, for visibility culling.
type Frustum struct {
	planes [6]plane // left, right, bottom, top, near, far
}

// ExtractFrustum pulls the planes out of a view-projection matrix with the
// Gribb/Hartmann method.
func ExtractFrustum(vp math3d.Mat4) Frustum {
	row := func(r int) [4]float32 {
		return [4]float32{vp[r], vp[4+r], vp[8+r], vp[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	mk := func(a, b [4]float32, sign float32) plane {
		return plane{
			normal: math3d.Vec3{
				X: a[0] + sign*b[0],
				Y: a[1] + sign*b[1],
				Z: a[2] + sign*b[2],
			},
			d: a[3] + sign*b[3],
		}.normalize()
	}

	var f Frustum
	f.planes[0] = mk(r3, r0, 1)  // left
	f.planes[1] = mk(r3, r0, -1) // right
	f.planes[2] = mk(r3, r1, 1)  // bottom
	f.planes[3] = mk(r3, r1, -1) // top
	f.planes[4] = mk(r3, r2, 1)  // near
	f.planes[5] = mk(r3, r2, -1) // far
	return f
}

// ContainsPoint reports whether the point is inside all six planes.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for _, pl := range f.planes {
		if pl.normal.Dot(p)+pl.d < 0 {
			return false
		}
	}
	return true
}

// ContainsSphere reports whether any part of the sphere is inside.
func (f Frustum) ContainsSphere(center math3d.Vec3, radius float32) bool {
	for _, pl := range f.planes {
		if pl.normal.Dot(center)+pl.d < -radius {
			return false
		}
	}
	return true
}

// ContainsAABB reports whether any part of the box is inside, testing the
// corner furthest along each plane normal.
func (f Frustum) ContainsAABB(box math3d.AABB) bool {
	for _, pl := range f.planes {
		p := math3d.Vec3{
			X: pick(pl.normal.X, box.Min.X, box.Max.X),
			Y: pick(pl.normal.Y, box.Min.Y, box.Max.Y),
			Z: pick(pl.normal.Z, box.Min.Z, box.Max.Z),
		}
		if pl.normal.Dot(p)+pl.d < 0 {
			return false
		}
	}
	return true
}

func pick(n, lo, hi float32) float32 {
	if math32.Signbit(n) {
		return lo
	}
	return hi
}
