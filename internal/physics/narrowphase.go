package physics

import (
	"github.com/chewxy/math32"

	"helix3d/internal/math3d"
)

// MaxContactPoints caps the contact manifold size.
const MaxContactPoints = 4

// CollisionInfo describes one touching pair. Normal is unit length and points
// from BodyA toward BodyB. Penetration is non-negative.
type CollisionInfo struct {
	BodyA, BodyB         *RigidBody
	ColliderA, ColliderB *Collider
	Normal               math3d.Vec3
	Penetration          float32
	Contacts             []math3d.Vec3
	// Point is the representative contact.
	Point math3d.Vec3
}

// collide dispatches the shape-pair test for two bodies. It returns the
// collision with the A→B normal convention, swapping operands internally
// where the pair function is written the other way around.
func collide(a, b *RigidBody) (CollisionInfo, bool) {
	ca, cb := a.Collider, b.Collider
	if ca == nil || cb == nil {
		return CollisionInfo{}, false
	}

	// compound recurses on children against the other collider
	if ca.Kind == ShapeCompound {
		return collideCompound(a, b, false)
	}
	if cb.Kind == ShapeCompound {
		return collideCompound(b, a, true)
	}

	info, ok := collideShapes(a, ca, b, cb)
	if !ok {
		return CollisionInfo{}, false
	}
	info.BodyA, info.BodyB = a, b
	info.ColliderA, info.ColliderB = ca, cb
	if len(info.Contacts) > 0 {
		info.Point = info.Contacts[0]
	}
	return info, true
}

// collideCompound tests every child of the compound body against the other
// body's collider and keeps the deepest hit. swapped restores operand order
// when the compound arrived as bodyB.
func collideCompound(compound, other *RigidBody, swapped bool) (CollisionInfo, bool) {
	var best CollisionInfo
	found := false
	saved := compound.Collider
	for _, child := range saved.Children {
		// borrow the body transform with the child in place
		compound.Collider = child
		info, ok := collide(compound, other)
		if ok && (!found || info.Penetration > best.Penetration) {
			best = info
			found = true
		}
	}
	compound.Collider = saved
	if !found {
		return CollisionInfo{}, false
	}
	best.ColliderA = saved
	if swapped {
		best = flipInfo(best)
	}
	return best, true
}

func flipInfo(info CollisionInfo) CollisionInfo {
	info.BodyA, info.BodyB = info.BodyB, info.BodyA
	info.ColliderA, info.ColliderB = info.ColliderB, info.ColliderA
	info.Normal = info.Normal.Neg()
	return info
}

// collideShapes runs the concrete pair test. The returned info has Normal
// pointing from a toward b but no body pointers filled in.
func collideShapes(a *RigidBody, ca *Collider, b *RigidBody, cb *Collider) (CollisionInfo, bool) {
	posA, rotA := ca.worldTransform(a.Position, a.Rotation)
	posB, rotB := cb.worldTransform(b.Position, b.Rotation)

	switch {
	case ca.Kind == ShapeSphere && cb.Kind == ShapeSphere:
		return sphereSphere(posA, ca.Radius, posB, cb.Radius)

	case ca.Kind == ShapeSphere && cb.Kind == ShapePlane:
		return spherePlane(posA, ca.Radius, posB, rotB.Rotate(cb.PlaneNormal))
	case ca.Kind == ShapePlane && cb.Kind == ShapeSphere:
		info, ok := spherePlane(posB, cb.Radius, posA, rotA.Rotate(ca.PlaneNormal))
		return flipShapeInfo(info), ok

	case ca.Kind == ShapeSphere && cb.Kind == ShapeBox:
		return sphereBox(posA, ca.Radius, posB, rotB, cb.HalfExtents)
	case ca.Kind == ShapeBox && cb.Kind == ShapeSphere:
		info, ok := sphereBox(posB, cb.Radius, posA, rotA, ca.HalfExtents)
		return flipShapeInfo(info), ok

	case ca.Kind == ShapeBox && cb.Kind == ShapePlane:
		return boxPlane(posA, rotA, ca.HalfExtents, posB, rotB.Rotate(cb.PlaneNormal))
	case ca.Kind == ShapePlane && cb.Kind == ShapeBox:
		info, ok := boxPlane(posB, rotB, cb.HalfExtents, posA, rotA.Rotate(ca.PlaneNormal))
		return flipShapeInfo(info), ok

	case ca.Kind == ShapeBox && cb.Kind == ShapeBox:
		return boxBox(posA, rotA, ca.HalfExtents, posB, rotB, cb.HalfExtents)

	case ca.Kind == ShapeCapsule && cb.Kind == ShapeSphere:
		return capsuleSphere(posA, rotA, ca.Radius, ca.HalfHeight, posB, cb.Radius)
	case ca.Kind == ShapeSphere && cb.Kind == ShapeCapsule:
		info, ok := capsuleSphere(posB, rotB, cb.Radius, cb.HalfHeight, posA, ca.Radius)
		return flipShapeInfo(info), ok

	case ca.Kind == ShapeCapsule && cb.Kind == ShapePlane:
		return capsulePlane(posA, rotA, ca.Radius, ca.HalfHeight, posB, rotB.Rotate(cb.PlaneNormal))
	case ca.Kind == ShapePlane && cb.Kind == ShapeCapsule:
		info, ok := capsulePlane(posB, rotB, cb.Radius, cb.HalfHeight, posA, rotA.Rotate(ca.PlaneNormal))
		return flipShapeInfo(info), ok

	case ca.Kind == ShapeSphere && cb.Kind == ShapeMesh:
		return sphereMesh(posA, ca.Radius, posB, rotB, cb)
	case ca.Kind == ShapeMesh && cb.Kind == ShapeSphere:
		info, ok := sphereMesh(posB, cb.Radius, posA, rotA, ca)
		return flipShapeInfo(info), ok
	}

	return CollisionInfo{}, false
}

func flipShapeInfo(info CollisionInfo) CollisionInfo {
	info.Normal = info.Normal.Neg()
	return info
}

func sphereSphere(posA math3d.Vec3, rA float32, posB math3d.Vec3, rB float32) (CollisionInfo, bool) {
	d := posB.Sub(posA)
	dist := d.Length()
	sum := rA + rB
	if dist > sum {
		return CollisionInfo{}, false
	}
	normal := math3d.Up
	if dist > 1e-6 {
		normal = d.Scale(1 / dist)
	}
	contact := posA.Add(normal.Scale(rA))
	return CollisionInfo{
		Normal:      normal,
		Penetration: sum - dist,
		Contacts:    []math3d.Vec3{contact},
	}, true
}

// spherePlane: normal returned points sphere→plane.
func spherePlane(center math3d.Vec3, radius float32, planePoint, planeN math3d.Vec3) (CollisionInfo, bool) {
	d := center.Sub(planePoint).Dot(planeN)
	if d > radius {
		return CollisionInfo{}, false
	}
	contact := center.Sub(planeN.Scale(d))
	return CollisionInfo{
		Normal:      planeN.Neg(),
		Penetration: radius - d,
		Contacts:    []math3d.Vec3{contact},
	}, true
}

// sphereBox: normal returned points sphere→box.
func sphereBox(center math3d.Vec3, radius float32, boxPos math3d.Vec3, boxRot math3d.Quat, half math3d.Vec3) (CollisionInfo, bool) {
	// sphere center in box-local space
	inv := boxRot.Conjugate()
	local := inv.Rotate(center.Sub(boxPos))

	clamped := math3d.Vec3{
		X: math3d.Clamp(local.X, -half.X, half.X),
		Y: math3d.Clamp(local.Y, -half.Y, half.Y),
		Z: math3d.Clamp(local.Z, -half.Z, half.Z),
	}
	diff := local.Sub(clamped)
	distSq := diff.LengthSq()

	if distSq > radius*radius {
		return CollisionInfo{}, false
	}

	var normalLocal math3d.Vec3
	var penetration float32

	if distSq > 1e-10 {
		// center outside the box
		dist := math32.Sqrt(distSq)
		normalLocal = diff.Scale(1 / dist)
		penetration = radius - dist
	} else {
		// center inside: escape through the face of minimum depth
		dx := half.X - math32.Abs(local.X)
		dy := half.Y - math32.Abs(local.Y)
		dz := half.Z - math32.Abs(local.Z)
		switch {
		case dx <= dy && dx <= dz:
			normalLocal = math3d.Vec3{X: sign(local.X)}
			penetration = dx + radius
		case dy <= dz:
			normalLocal = math3d.Vec3{Y: sign(local.Y)}
			penetration = dy + radius
		default:
			normalLocal = math3d.Vec3{Z: sign(local.Z)}
			penetration = dz + radius
		}
		clamped = local
	}

	normalWorld := boxRot.Rotate(normalLocal)
	contact := boxPos.Add(boxRot.Rotate(clamped))
	return CollisionInfo{
		Normal:      normalWorld.Neg(), // sphere → box
		Penetration: penetration,
		Contacts:    []math3d.Vec3{contact},
	}, true
}

// boxPlane: normal returned points box→plane. Up to four deepest corners
// become contacts.
func boxPlane(boxPos math3d.Vec3, boxRot math3d.Quat, half math3d.Vec3, planePoint, planeN math3d.Vec3) (CollisionInfo, bool) {
	var deepest float32
	var contacts []math3d.Vec3

	for i := 0; i < 8; i++ {
		corner := math3d.Vec3{
			X: half.X * cornerSign(i, 0),
			Y: half.Y * cornerSign(i, 1),
			Z: half.Z * cornerSign(i, 2),
		}
		world := boxPos.Add(boxRot.Rotate(corner))
		d := world.Sub(planePoint).Dot(planeN)
		if d < 0 {
			if -d > deepest {
				deepest = -d
			}
			if len(contacts) < MaxContactPoints {
				contacts = append(contacts, world)
			}
		}
	}
	if len(contacts) == 0 {
		return CollisionInfo{}, false
	}
	return CollisionInfo{
		Normal:      planeN.Neg(),
		Penetration: deepest,
		Contacts:    contacts,
	}, true
}

func cornerSign(i, axis int) float32 {
	if i&(1<<axis) != 0 {
		return 1
	}
	return -1
}

// boxBox runs SAT over the 15 candidate axes. The minimum-overlap axis wins
// and is signed to point a→b. A single midpoint contact is produced; manifold
// generation for stable stacking is future work.
func boxBox(posA math3d.Vec3, rotA math3d.Quat, halfA math3d.Vec3, posB math3d.Vec3, rotB math3d.Quat, halfB math3d.Vec3) (CollisionInfo, bool) {
	ma := math3d.Mat3FromQuat(rotA)
	mb := math3d.Mat3FromQuat(rotB)
	axesA := [3]math3d.Vec3{
		{X: ma[0], Y: ma[1], Z: ma[2]},
		{X: ma[3], Y: ma[4], Z: ma[5]},
		{X: ma[6], Y: ma[7], Z: ma[8]},
	}
	axesB := [3]math3d.Vec3{
		{X: mb[0], Y: mb[1], Z: mb[2]},
		{X: mb[3], Y: mb[4], Z: mb[5]},
		{X: mb[6], Y: mb[7], Z: mb[8]},
	}
	t := posB.Sub(posA)

	minOverlap := float32(math32.MaxFloat32)
	var minAxis math3d.Vec3
	found := false

	test := func(axis math3d.Vec3) bool {
		lenSq := axis.LengthSq()
		if lenSq < 1e-8 {
			return true // parallel edges, skip
		}
		axis = axis.Scale(1 / math32.Sqrt(lenSq))
		projA := halfA.X*math32.Abs(axesA[0].Dot(axis)) +
			halfA.Y*math32.Abs(axesA[1].Dot(axis)) +
			halfA.Z*math32.Abs(axesA[2].Dot(axis))
		projB := halfB.X*math32.Abs(axesB[0].Dot(axis)) +
			halfB.Y*math32.Abs(axesB[1].Dot(axis)) +
			halfB.Z*math32.Abs(axesB[2].Dot(axis))
		dist := t.Dot(axis)
		overlap := projA + projB - math32.Abs(dist)
		if overlap < 0 {
			return false // separating axis
		}
		if overlap < minOverlap {
			minOverlap = overlap
			if dist < 0 {
				axis = axis.Neg()
			}
			minAxis = axis
			found = true
		}
		return true
	}

	for i := 0; i < 3; i++ {
		if !test(axesA[i]) {
			return CollisionInfo{}, false
		}
	}
	for i := 0; i < 3; i++ {
		if !test(axesB[i]) {
			return CollisionInfo{}, false
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !test(axesA[i].Cross(axesB[j])) {
				return CollisionInfo{}, false
			}
		}
	}
	if !found {
		return CollisionInfo{}, false
	}

	contact := posA.Add(posB).Scale(0.5)
	return CollisionInfo{
		Normal:      minAxis,
		Penetration: minOverlap,
		Contacts:    []math3d.Vec3{contact},
	}, true
}

// capsuleSphere reduces to sphere-sphere against the closest point on the
// capsule's internal segment. Normal returned points capsule→sphere.
func capsuleSphere(capPos math3d.Vec3, capRot math3d.Quat, capRadius, halfHeight float32, spherePos math3d.Vec3, sphereRadius float32) (CollisionInfo, bool) {
	axis := capRot.Rotate(math3d.Vec3{Y: halfHeight})
	p0 := capPos.Sub(axis)
	p1 := capPos.Add(axis)
	closest := closestPointOnSegment(p0, p1, spherePos)
	return sphereSphere(closest, capRadius, spherePos, sphereRadius)
}

// capsulePlane tests both segment endpoints against the plane. Normal
// returned points capsule→plane.
func capsulePlane(capPos math3d.Vec3, capRot math3d.Quat, radius, halfHeight float32, planePoint, planeN math3d.Vec3) (CollisionInfo, bool) {
	axis := capRot.Rotate(math3d.Vec3{Y: halfHeight})
	ends := [2]math3d.Vec3{capPos.Sub(axis), capPos.Add(axis)}

	var contacts []math3d.Vec3
	var deepest float32
	hit := false
	for _, e := range ends {
		d := e.Sub(planePoint).Dot(planeN)
		if d <= radius {
			hit = true
			if radius-d > deepest {
				deepest = radius - d
			}
			contacts = append(contacts, e.Sub(planeN.Scale(d)))
		}
	}
	if !hit {
		return CollisionInfo{}, false
	}
	return CollisionInfo{
		Normal:      planeN.Neg(),
		Penetration: deepest,
		Contacts:    contacts,
	}, true
}

// sphereMesh finds the deepest sphere-triangle overlap. Normal returned
// points sphere→mesh. Mesh colliders are intended for statics.
func sphereMesh(center math3d.Vec3, radius float32, meshPos math3d.Vec3, meshRot math3d.Quat, mesh *Collider) (CollisionInfo, bool) {
	// work in mesh-local space
	inv := meshRot.Conjugate()
	local := inv.Rotate(center.Sub(meshPos))

	if !mesh.meshBounds.ExpandMargin(radius).Contains(local) {
		return CollisionInfo{}, false
	}

	var bestNormal math3d.Vec3
	var bestContact math3d.Vec3
	bestPen := float32(-1)

	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		closest := closestPointOnTriangle(mesh.Vertices[i], mesh.Vertices[i+1], mesh.Vertices[i+2], local)
		diff := local.Sub(closest)
		distSq := diff.LengthSq()
		if distSq > radius*radius || distSq < 1e-12 {
			continue
		}
		dist := math32.Sqrt(distSq)
		if pen := radius - dist; pen > bestPen {
			bestPen = pen
			bestNormal = diff.Scale(1 / dist)
			bestContact = closest
		}
	}
	if bestPen < 0 {
		return CollisionInfo{}, false
	}
	return CollisionInfo{
		Normal:      meshRot.Rotate(bestNormal).Neg(),
		Penetration: bestPen,
		Contacts:    []math3d.Vec3{meshPos.Add(meshRot.Rotate(bestContact))},
	}, true
}

func closestPointOnSegment(a, b, p math3d.Vec3) math3d.Vec3 {
	ab := b.Sub(a)
	denom := ab.LengthSq()
	if denom < 1e-10 {
		return a
	}
	t := math3d.Clamp(p.Sub(a).Dot(ab)/denom, 0, 1)
	return a.Add(ab.Scale(t))
}

// closestPointOnTriangle projects p onto triangle abc (Ericson, Real-Time
// Collision Detection §5.1.5).
func closestPointOnTriangle(a, b, c, p math3d.Vec3) math3d.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Scale(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Scale(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Scale(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Scale(v)).Add(ac.Scale(w))
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
