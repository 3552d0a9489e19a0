package physics

import (
	"helix3d/internal/math3d"
)

// QueryAABB returns every body whose bounds overlap the box, in ID order.
// layerMask zero matches all layers.
func (w *World) QueryAABB(box math3d.AABB, layerMask uint32) []*RigidBody {
	var out []*RigidBody
	for _, b := range w.bodies {
		if b.Collider == nil {
			continue
		}
		if layerMask != 0 && b.Collider.Layer&layerMask == 0 {
			continue
		}
		if b.AABB().Intersects(box) {
			out = append(out, b)
		}
	}
	return out
}

// QuerySphere returns every body whose bounds overlap the sphere, in ID
// order. The test is AABB-vs-sphere on the body bounds, so results can
// include near misses of rotated shapes.
func (w *World) QuerySphere(center math3d.Vec3, radius float32, layerMask uint32) []*RigidBody {
	var out []*RigidBody
	rSq := radius * radius
	for _, b := range w.bodies {
		if b.Collider == nil {
			continue
		}
		if layerMask != 0 && b.Collider.Layer&layerMask == 0 {
			continue
		}
		box := b.AABB()
		closest := math3d.Vec3{
			X: math3d.Clamp(center.X, box.Min.X, box.Max.X),
			Y: math3d.Clamp(center.Y, box.Min.Y, box.Max.Y),
			Z: math3d.Clamp(center.Z, box.Min.Z, box.Max.Z),
		}
		if closest.Sub(center).LengthSq() <= rSq {
			out = append(out, b)
		}
	}
	return out
}
