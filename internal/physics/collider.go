package physics

import (
	"github.com/chewxy/math32"

	"helix3d/internal/math3d"
)

// ShapeKind tags the collider shape union.
type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota
	ShapeBox
	ShapeCapsule
	ShapePlane
	ShapeMesh
	ShapeCompound
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapeCapsule:
		return "capsule"
	case ShapePlane:
		return "plane"
	case ShapeMesh:
		return "mesh"
	case ShapeCompound:
		return "compound"
	}
	return "unknown"
}

// DefaultLayer is the collision layer assigned to new colliders.
const DefaultLayer uint32 = 1

// Collider is a tagged shape variant attached to a rigid body. Shape data is
// inline; dispatch is a switch on Kind. Two colliders interact iff
// (A.Layer & B.Mask) != 0 && (B.Layer & A.Mask) != 0.
type Collider struct {
	Kind ShapeKind

	// Sphere and capsule radius.
	Radius float32
	// Box half extents.
	HalfExtents math3d.Vec3
	// Capsule half height of the internal segment (along local Y).
	HalfHeight float32
	// Plane normal in collider-local space.
	PlaneNormal math3d.Vec3
	// Mesh triangle soup, three vertices per triangle, collider-local space.
	Vertices []math3d.Vec3
	// Compound children.
	Children []*Collider

	// Placement relative to the owning body.
	Offset   math3d.Vec3
	Rotation math3d.Quat

	IsTrigger bool
	Layer     uint32
	Mask      uint32

	// Cached local-space bounds for mesh colliders.
	meshBounds math3d.AABB
}

// NewSphereCollider returns a sphere collider of the given radius.
func NewSphereCollider(radius float32) *Collider {
	return &Collider{
		Kind:     ShapeSphere,
		Radius:   radius,
		Rotation: math3d.QuatIdentity(),
		Layer:    DefaultLayer,
		Mask:     ^uint32(0),
	}
}

// NewBoxCollider returns a box collider with the given half extents.
func NewBoxCollider(halfExtents math3d.Vec3) *Collider {
	return &Collider{
		Kind:        ShapeBox,
		HalfExtents: halfExtents,
		Rotation:    math3d.QuatIdentity(),
		Layer:       DefaultLayer,
		Mask:        ^uint32(0),
	}
}

// NewCapsuleCollider returns a capsule with the given radius and half height
// of the internal segment, aligned with local Y.
func NewCapsuleCollider(radius, halfHeight float32) *Collider {
	return &Collider{
		Kind:       ShapeCapsule,
		Radius:     radius,
		HalfHeight: halfHeight,
		Rotation:   math3d.QuatIdentity(),
		Layer:      DefaultLayer,
		Mask:       ^uint32(0),
	}
}

// NewPlaneCollider returns an infinite plane through the collider origin with
// the given local-space normal. Plane colliders belong on static bodies.
func NewPlaneCollider(normal math3d.Vec3) *Collider {
	return &Collider{
		Kind:        ShapePlane,
		PlaneNormal: normal.Normalize(),
		Rotation:    math3d.QuatIdentity(),
		Layer:       DefaultLayer,
		Mask:        ^uint32(0),
	}
}

// NewMeshCollider builds a triangle-soup collider. vertices holds three
// entries per triangle; the slice is retained, not copied.
func NewMeshCollider(vertices []math3d.Vec3) *Collider {
	c := &Collider{
		Kind:     ShapeMesh,
		Vertices: vertices,
		Rotation: math3d.QuatIdentity(),
		Layer:    DefaultLayer,
		Mask:     ^uint32(0),
	}
	if len(vertices) > 0 {
		b := math3d.AABB{Min: vertices[0], Max: vertices[0]}
		for _, v := range vertices[1:] {
			b = b.ExpandPoint(v)
		}
		c.meshBounds = b
	}
	return c
}

// NewCompoundCollider groups child colliders under one body.
func NewCompoundCollider(children ...*Collider) *Collider {
	return &Collider{
		Kind:     ShapeCompound,
		Children: children,
		Rotation: math3d.QuatIdentity(),
		Layer:    DefaultLayer,
		Mask:     ^uint32(0),
	}
}

// CanCollideWith applies the layer/mask filter.
func (c *Collider) CanCollideWith(o *Collider) bool {
	return c.Layer&o.Mask != 0 && o.Layer&c.Mask != 0
}

// worldTransform returns the collider's world position and rotation given the
// owning body's transform.
func (c *Collider) worldTransform(bodyPos math3d.Vec3, bodyRot math3d.Quat) (math3d.Vec3, math3d.Quat) {
	return bodyPos.Add(bodyRot.Rotate(c.Offset)), bodyRot.Mul(c.Rotation)
}

// bounds computes the world-space AABB of the collider for a body transform.
func (c *Collider) bounds(bodyPos math3d.Vec3, bodyRot math3d.Quat) math3d.AABB {
	pos, rot := c.worldTransform(bodyPos, bodyRot)

	switch c.Kind {
	case ShapeSphere:
		r := math3d.Vec3{X: c.Radius, Y: c.Radius, Z: c.Radius}
		return math3d.AABB{Min: pos.Sub(r), Max: pos.Add(r)}

	case ShapeBox:
		// project the rotated half extents onto the world axes
		m := math3d.Mat3FromQuat(rot)
		h := c.HalfExtents
		ext := math3d.Vec3{
			X: math32.Abs(m[0])*h.X + math32.Abs(m[3])*h.Y + math32.Abs(m[6])*h.Z,
			Y: math32.Abs(m[1])*h.X + math32.Abs(m[4])*h.Y + math32.Abs(m[7])*h.Z,
			Z: math32.Abs(m[2])*h.X + math32.Abs(m[5])*h.Y + math32.Abs(m[8])*h.Z,
		}
		return math3d.AABB{Min: pos.Sub(ext), Max: pos.Add(ext)}

	case ShapeCapsule:
		axis := rot.Rotate(math3d.Vec3{Y: c.HalfHeight})
		a, b := pos.Sub(axis), pos.Add(axis)
		box := math3d.AABB{Min: a, Max: a}.ExpandPoint(b)
		return box.ExpandMargin(c.Radius)

	case ShapePlane:
		// infinite extent; keep it bounded for the sweep but effectively huge
		const big = 1e6
		n := rot.Rotate(c.PlaneNormal)
		box := math3d.AABB{
			Min: math3d.Vec3{X: -big, Y: -big, Z: -big},
			Max: math3d.Vec3{X: big, Y: big, Z: big},
		}
		// clamp the half-space on the normal's dominant axis
		switch {
		case n.Y > 0.999:
			box.Max.Y = pos.Y
		case n.Y < -0.999:
			box.Min.Y = pos.Y
		case n.X > 0.999:
			box.Max.X = pos.X
		case n.X < -0.999:
			box.Min.X = pos.X
		case n.Z > 0.999:
			box.Max.Z = pos.Z
		case n.Z < -0.999:
			box.Min.Z = pos.Z
		}
		return box

	case ShapeMesh:
		// transform the local bounds corners
		b := c.meshBounds
		corners := [8]math3d.Vec3{
			{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
			{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
			{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
			{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
			{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
			{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
			{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
			{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
		}
		first := pos.Add(rot.Rotate(corners[0]))
		out := math3d.AABB{Min: first, Max: first}
		for _, corner := range corners[1:] {
			out = out.ExpandPoint(pos.Add(rot.Rotate(corner)))
		}
		return out

	case ShapeCompound:
		if len(c.Children) == 0 {
			return math3d.AABB{Min: pos, Max: pos}
		}
		out := c.Children[0].bounds(pos, rot)
		for _, child := range c.Children[1:] {
			out = out.Union(child.bounds(pos, rot))
		}
		return out
	}
	return math3d.AABB{Min: pos, Max: pos}
}

// localInertia returns the local-space inverse inertia tensor diagonal for the
// shape at the given mass. Shapes that only make sense as statics (plane,
// mesh) return a zero tensor.
func (c *Collider) localInertia(mass float32) math3d.Vec3 {
	if mass <= 0 {
		return math3d.Zero3
	}
	switch c.Kind {
	case ShapeSphere:
		i := 0.4 * mass * c.Radius * c.Radius
		return math3d.Vec3{X: 1 / i, Y: 1 / i, Z: 1 / i}

	case ShapeBox:
		h := c.HalfExtents
		ix := mass / 3 * (h.Y*h.Y + h.Z*h.Z)
		iy := mass / 3 * (h.X*h.X + h.Z*h.Z)
		iz := mass / 3 * (h.X*h.X + h.Y*h.Y)
		return math3d.Vec3{X: 1 / ix, Y: 1 / iy, Z: 1 / iz}

	case ShapeCapsule:
		// solid-cylinder approximation spanning the full capsule
		r := c.Radius
		h := 2*c.HalfHeight + 2*r
		iy := 0.5 * mass * r * r
		ix := mass * (3*r*r + h*h) / 12
		return math3d.Vec3{X: 1 / ix, Y: 1 / iy, Z: 1 / ix}

	case ShapeCompound:
		// conservative: box inertia of the union bounds around the origin
		b := c.bounds(math3d.Zero3, math3d.QuatIdentity())
		h := b.Extents()
		ix := mass / 3 * (h.Y*h.Y + h.Z*h.Z)
		iy := mass / 3 * (h.X*h.X + h.Z*h.Z)
		iz := mass / 3 * (h.X*h.X + h.Y*h.Y)
		return math3d.Vec3{X: 1 / ix, Y: 1 / iy, Z: 1 / iz}
	}
	return math3d.Zero3
}
