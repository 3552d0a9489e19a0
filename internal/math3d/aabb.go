package math3d

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box. Min ≤ Max componentwise.
type AABB struct {
	Min, Max Vec3
}

// AABBFromCenter builds an AABB from a center point and full extents.
func AABBFromCenter(center, size Vec3) AABB {
	half := size.Scale(0.5)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// Center returns the box midpoint.
func (a AABB) Center() Vec3 { return a.Min.Add(a.Max).Scale(0.5) }

// Extents returns the half-size on each axis.
func (a AABB) Extents() Vec3 { return a.Max.Sub(a.Min).Scale(0.5) }

// ExpandPoint grows the box to contain p.
func (a AABB) ExpandPoint(p Vec3) AABB {
	if p.X < a.Min.X {
		a.Min.X = p.X
	}
	if p.Y < a.Min.Y {
		a.Min.Y = p.Y
	}
	if p.Z < a.Min.Z {
		a.Min.Z = p.Z
	}
	if p.X > a.Max.X {
		a.Max.X = p.X
	}
	if p.Y > a.Max.Y {
		a.Max.Y = p.Y
	}
	if p.Z > a.Max.Z {
		a.Max.Z = p.Z
	}
	return a
}

// ExpandMargin grows the box by m on all sides.
func (a AABB) ExpandMargin(m float32) AABB {
	d := Vec3{m, m, m}
	return AABB{Min: a.Min.Sub(d), Max: a.Max.Add(d)}
}

// Union returns the smallest box containing both a and b.
func (a AABB) Union(b AABB) AABB {
	return a.ExpandPoint(b.Min).ExpandPoint(b.Max)
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

func (a AABB) Contains(p Vec3) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X &&
		p.Y >= a.Min.Y && p.Y <= a.Max.Y &&
		p.Z >= a.Min.Z && p.Z <= a.Max.Z
}

// IntersectRay runs the slab test against the box. Returns the entry and
// exit distances along the ray clipped to [0, maxDist], and whether the ray
// hits at all. A ray starting inside the box hits with tNear = 0.
func (a AABB) IntersectRay(origin, dir Vec3, maxDist float32) (tNear, tFar float32, hit bool) {
	tNear = 0
	tFar = maxDist
	o := [3]float32{origin.X, origin.Y, origin.Z}
	d := [3]float32{dir.X, dir.Y, dir.Z}
	lo := [3]float32{a.Min.X, a.Min.Y, a.Min.Z}
	hi := [3]float32{a.Max.X, a.Max.Y, a.Max.Z}

	for i := 0; i < 3; i++ {
		if math32.Abs(d[i]) < 1e-8 {
			// parallel to slab: must already be inside it
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (lo[i] - o[i]) * inv
		t2 := (hi[i] - o[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear = t1
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar {
			return 0, 0, false
		}
	}
	return tNear, tFar, true
}
