package physics

import (
	"sort"

	"github.com/chewxy/math32"

	"helix3d/internal/math3d"
)

// Ray is a half line with unit direction.
type Ray struct {
	Origin    math3d.Vec3
	Direction math3d.Vec3
	MaxDist   float32
}

// NewRay normalizes the direction and clamps maxDist to a positive value.
func NewRay(origin, direction math3d.Vec3, maxDist float32) Ray {
	if maxDist <= 0 {
		maxDist = math32.MaxFloat32
	}
	return Ray{Origin: origin, Direction: direction.Normalize(), MaxDist: maxDist}
}

// RaycastHit describes a single ray intersection.
type RaycastHit struct {
	Body     *RigidBody
	Point    math3d.Vec3
	Normal   math3d.Vec3
	Distance float32
}

// RaycastOptions filters raycast results.
type RaycastOptions struct {
	// LayerMask selects which collider layers are hit. Zero means all.
	LayerMask uint32
	// IncludeTriggers hits trigger colliders too.
	IncludeTriggers bool
	// HitBackfaces reports hits on plane backsides and from inside shapes.
	HitBackfaces bool
	// Sorted orders RaycastAll results nearest first.
	Sorted bool
}

// Raycast returns the nearest hit along the ray, if any.
func (w *World) Raycast(ray Ray, opts RaycastOptions) (RaycastHit, bool) {
	best := RaycastHit{Distance: math32.MaxFloat32}
	found := false
	for _, b := range w.bodies {
		hit, ok := w.raycastBody(b, ray, opts)
		if ok && hit.Distance < best.Distance {
			best = hit
			found = true
		}
	}
	return best, found
}

// RaycastAll returns every hit along the ray, one per body.
func (w *World) RaycastAll(ray Ray, opts RaycastOptions) []RaycastHit {
	var hits []RaycastHit
	for _, b := range w.bodies {
		if hit, ok := w.raycastBody(b, ray, opts); ok {
			hits = append(hits, hit)
		}
	}
	if opts.Sorted {
		sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	}
	return hits
}

func (w *World) raycastBody(b *RigidBody, ray Ray, opts RaycastOptions) (RaycastHit, bool) {
	c := b.Collider
	if c == nil {
		return RaycastHit{}, false
	}
	if c.IsTrigger && !opts.IncludeTriggers {
		return RaycastHit{}, false
	}
	if opts.LayerMask != 0 && c.Layer&opts.LayerMask == 0 {
		return RaycastHit{}, false
	}
	// cheap slab test against the body bounds before the exact shape test
	if _, _, ok := b.AABB().IntersectRay(ray.Origin, ray.Direction, ray.MaxDist); !ok {
		return RaycastHit{}, false
	}
	hit, ok := raycastCollider(c, b.Position, b.Rotation, ray, opts)
	if !ok {
		return RaycastHit{}, false
	}
	hit.Body = b
	return hit, true
}

func raycastCollider(c *Collider, bodyPos math3d.Vec3, bodyRot math3d.Quat, ray Ray, opts RaycastOptions) (RaycastHit, bool) {
	pos, rot := c.worldTransform(bodyPos, bodyRot)

	switch c.Kind {
	case ShapeSphere:
		return raySphere(ray, pos, c.Radius)
	case ShapeBox:
		return rayBox(ray, pos, rot, c.HalfExtents)
	case ShapeCapsule:
		return rayCapsule(ray, pos, rot, c.Radius, c.HalfHeight)
	case ShapePlane:
		return rayPlane(ray, pos, rot.Rotate(c.PlaneNormal), opts.HitBackfaces)
	case ShapeMesh:
		return rayMesh(ray, pos, rot, c)
	case ShapeCompound:
		best := RaycastHit{Distance: math32.MaxFloat32}
		found := false
		for _, child := range c.Children {
			if hit, ok := raycastCollider(child, pos, rot, ray, opts); ok && hit.Distance < best.Distance {
				best = hit
				found = true
			}
		}
		return best, found
	}
	return RaycastHit{}, false
}

// raySphere solves the quadratic |o + t·d - c|² = r².
func raySphere(ray Ray, center math3d.Vec3, radius float32) (RaycastHit, bool) {
	oc := ray.Origin.Sub(center)
	b := oc.Dot(ray.Direction)
	c := oc.LengthSq() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return RaycastHit{}, false
	}
	sq := math32.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq // origin inside
	}
	if t < 0 || t > ray.MaxDist {
		return RaycastHit{}, false
	}
	point := ray.Origin.Add(ray.Direction.Scale(t))
	return RaycastHit{
		Point:    point,
		Normal:   point.Sub(center).Normalize(),
		Distance: t,
	}, true
}

// rayBox transforms the ray into box-local space, runs the slab test and
// derives the face normal from the entry point.
func rayBox(ray Ray, pos math3d.Vec3, rot math3d.Quat, half math3d.Vec3) (RaycastHit, bool) {
	inv := rot.Conjugate()
	localOrigin := inv.Rotate(ray.Origin.Sub(pos))
	localDir := inv.Rotate(ray.Direction)

	box := math3d.AABB{Min: half.Neg(), Max: half}
	tNear, _, hit := box.IntersectRay(localOrigin, localDir, ray.MaxDist)
	if !hit {
		return RaycastHit{}, false
	}

	localPoint := localOrigin.Add(localDir.Scale(tNear))
	// the face whose plane the entry point sits on gives the normal
	var localNormal math3d.Vec3
	bestDelta := float32(math32.MaxFloat32)
	check := func(delta float32, n math3d.Vec3) {
		if delta = math32.Abs(delta); delta < bestDelta {
			bestDelta = delta
			localNormal = n
		}
	}
	check(localPoint.X-half.X, math3d.Vec3{X: 1})
	check(localPoint.X+half.X, math3d.Vec3{X: -1})
	check(localPoint.Y-half.Y, math3d.Vec3{Y: 1})
	check(localPoint.Y+half.Y, math3d.Vec3{Y: -1})
	check(localPoint.Z-half.Z, math3d.Vec3{Z: 1})
	check(localPoint.Z+half.Z, math3d.Vec3{Z: -1})

	return RaycastHit{
		Point:    pos.Add(rot.Rotate(localPoint)),
		Normal:   rot.Rotate(localNormal),
		Distance: tNear,
	}, true
}

// rayCapsule tests the infinite cylinder about the local Y axis, clips to the
// segment span, then falls back to the cap spheres.
func rayCapsule(ray Ray, pos math3d.Vec3, rot math3d.Quat, radius, halfHeight float32) (RaycastHit, bool) {
	inv := rot.Conjugate()
	o := inv.Rotate(ray.Origin.Sub(pos))
	d := inv.Rotate(ray.Direction)

	best := RaycastHit{Distance: math32.MaxFloat32}
	found := false

	// cylinder body: ignore the Y component
	a := d.X*d.X + d.Z*d.Z
	if a > 1e-10 {
		b := o.X*d.X + o.Z*d.Z
		cc := o.X*o.X + o.Z*o.Z - radius*radius
		disc := b*b - a*cc
		if disc >= 0 {
			t := (-b - math32.Sqrt(disc)) / a
			if t >= 0 && t <= ray.MaxDist {
				y := o.Y + d.Y*t
				if y >= -halfHeight && y <= halfHeight {
					p := o.Add(d.Scale(t))
					best = RaycastHit{
						Point:    p,
						Normal:   math3d.Vec3{X: p.X, Z: p.Z}.Normalize(),
						Distance: t,
					}
					found = true
				}
			}
		}
	}

	// cap spheres in local space
	localRay := Ray{Origin: o, Direction: d, MaxDist: ray.MaxDist}
	for _, cy := range [2]float32{-halfHeight, halfHeight} {
		if hit, ok := raySphere(localRay, math3d.Vec3{Y: cy}, radius); ok && hit.Distance < best.Distance {
			best = hit
			found = true
		}
	}
	if !found {
		return RaycastHit{}, false
	}
	best.Point = pos.Add(rot.Rotate(best.Point))
	best.Normal = rot.Rotate(best.Normal)
	return best, true
}

func rayPlane(ray Ray, point, normal math3d.Vec3, hitBackfaces bool) (RaycastHit, bool) {
	denom := ray.Direction.Dot(normal)
	if math32.Abs(denom) < 1e-8 {
		return RaycastHit{}, false
	}
	if denom > 0 && !hitBackfaces {
		return RaycastHit{}, false
	}
	t := point.Sub(ray.Origin).Dot(normal) / denom
	if t < 0 || t > ray.MaxDist {
		return RaycastHit{}, false
	}
	n := normal
	if denom > 0 {
		n = n.Neg()
	}
	return RaycastHit{
		Point:    ray.Origin.Add(ray.Direction.Scale(t)),
		Normal:   n,
		Distance: t,
	}, true
}

// rayMesh tests every triangle with Möller-Trumbore and keeps the nearest.
func rayMesh(ray Ray, pos math3d.Vec3, rot math3d.Quat, mesh *Collider) (RaycastHit, bool) {
	inv := rot.Conjugate()
	o := inv.Rotate(ray.Origin.Sub(pos))
	d := inv.Rotate(ray.Direction)

	if _, _, hit := mesh.meshBounds.IntersectRay(o, d, ray.MaxDist); !hit {
		return RaycastHit{}, false
	}

	bestT := ray.MaxDist
	var bestNormal math3d.Vec3
	found := false

	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		t, ok := rayTriangle(o, d, mesh.Vertices[i], mesh.Vertices[i+1], mesh.Vertices[i+2])
		if ok && t < bestT {
			bestT = t
			e1 := mesh.Vertices[i+1].Sub(mesh.Vertices[i])
			e2 := mesh.Vertices[i+2].Sub(mesh.Vertices[i])
			n := e1.Cross(e2).Normalize()
			if n.Dot(d) > 0 {
				n = n.Neg()
			}
			bestNormal = n
			found = true
		}
	}
	if !found {
		return RaycastHit{}, false
	}
	return RaycastHit{
		Point:    pos.Add(rot.Rotate(o.Add(d.Scale(bestT)))),
		Normal:   rot.Rotate(bestNormal),
		Distance: bestT,
	}, true
}

// rayTriangle is Möller-Trumbore, double-sided.
func rayTriangle(o, d, v0, v1, v2 math3d.Vec3) (float32, bool) {
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)
	p := d.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < 1e-8 {
		return 0, false
	}
	invDet := 1 / det
	tv := o.Sub(v0)
	u := tv.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	q := tv.Cross(e1)
	v := d.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * invDet
	if t < 0 {
		return 0, false
	}
	return t, true
}

// SphereCast sweeps a sphere of the given radius along the ray and returns
// the nearest body it would touch. Implemented as a raycast against bodies
// inflated by the radius (Minkowski sum against their bounding spheres for
// non-sphere shapes).
func (w *World) SphereCast(ray Ray, radius float32, opts RaycastOptions) (RaycastHit, bool) {
	best := RaycastHit{Distance: math32.MaxFloat32}
	found := false
	for _, b := range w.bodies {
		c := b.Collider
		if c == nil || (c.IsTrigger && !opts.IncludeTriggers) {
			continue
		}
		if opts.LayerMask != 0 && c.Layer&opts.LayerMask == 0 {
			continue
		}

		var hit RaycastHit
		var ok bool
		if c.Kind == ShapeSphere {
			pos, _ := c.worldTransform(b.Position, b.Rotation)
			hit, ok = raySphere(ray, pos, c.Radius+radius)
		} else {
			box := b.AABB().ExpandMargin(radius)
			var tNear float32
			tNear, _, ok = box.IntersectRay(ray.Origin, ray.Direction, ray.MaxDist)
			if ok {
				point := ray.Origin.Add(ray.Direction.Scale(tNear))
				hit = RaycastHit{Point: point, Normal: ray.Direction.Neg(), Distance: tNear}
			}
		}
		if ok && hit.Distance < best.Distance {
			hit.Body = b
			best = hit
			found = true
		}
	}
	return best, found
}

// BoxCast sweeps an axis-aligned box along the ray, approximated by the
// Minkowski-expanded AABBs of the bodies.
func (w *World) BoxCast(ray Ray, halfExtents math3d.Vec3, opts RaycastOptions) (RaycastHit, bool) {
	best := RaycastHit{Distance: math32.MaxFloat32}
	found := false
	for _, b := range w.bodies {
		c := b.Collider
		if c == nil || (c.IsTrigger && !opts.IncludeTriggers) {
			continue
		}
		if opts.LayerMask != 0 && c.Layer&opts.LayerMask == 0 {
			continue
		}
		box := b.AABB()
		box.Min = box.Min.Sub(halfExtents)
		box.Max = box.Max.Add(halfExtents)
		tNear, _, ok := box.IntersectRay(ray.Origin, ray.Direction, ray.MaxDist)
		if ok && tNear < best.Distance {
			best = RaycastHit{
				Body:     b,
				Point:    ray.Origin.Add(ray.Direction.Scale(tNear)),
				Normal:   ray.Direction.Neg(),
				Distance: tNear,
			}
			found = true
		}
	}
	return best, found
}
