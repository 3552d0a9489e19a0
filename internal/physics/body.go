package physics

import (
	"helix3d/internal/math3d"
)

// BodyType selects how a rigid body participates in the simulation.
type BodyType uint8

const (
	// Static bodies never move; infinite mass, never integrated.
	Static BodyType = iota
	// Dynamic bodies respond to forces, impulses and collisions.
	Dynamic
	// Kinematic bodies ignore forces but carry velocity and push dynamics.
	Kinematic
)

func (t BodyType) String() string {
	switch t {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	}
	return "unknown"
}

// RigidBody is a simulated body owned by a World. External code holds the
// pointer but must not destroy the body during a step.
type RigidBody struct {
	ID   uint32
	Type BodyType

	Position math3d.Vec3
	Rotation math3d.Quat

	LinearVelocity  math3d.Vec3
	AngularVelocity math3d.Vec3

	Mass    float32
	invMass float32

	// Inverse inertia tensor, local space diagonal and derived world space.
	invInertiaLocal math3d.Vec3
	invInertiaWorld math3d.Mat3

	force  math3d.Vec3
	torque math3d.Vec3

	Restitution    float32
	Friction       float32
	LinearDamping  float32
	AngularDamping float32
	GravityScale   float32

	Collider *Collider

	CanSleep   bool
	sleeping   bool
	sleepTimer float32

	// UserData is an opaque handle for the embedding application.
	UserData any
}

func newBody(id uint32, t BodyType, pos math3d.Vec3) *RigidBody {
	b := &RigidBody{
		ID:           id,
		Type:         t,
		Position:     pos,
		Rotation:     math3d.QuatIdentity(),
		Restitution:  0.2,
		Friction:     0.5,
		GravityScale: 1,
		CanSleep:     true,
	}
	b.SetMass(1)
	return b
}

// SetMass updates the body mass and recomputes inertia. Non-positive mass on
// a dynamic body degrades it to infinite mass (treated as static weight).
func (b *RigidBody) SetMass(mass float32) {
	b.Mass = mass
	if b.Type != Dynamic || mass <= 0 {
		b.invMass = 0
		b.invInertiaLocal = math3d.Zero3
		b.invInertiaWorld = math3d.Mat3{}
		return
	}
	b.invMass = 1 / mass
	if b.Collider != nil {
		b.invInertiaLocal = b.Collider.localInertia(mass)
	} else {
		// point mass: use a unit sphere tensor so torque still turns it
		b.invInertiaLocal = math3d.Vec3{X: 2.5 / mass, Y: 2.5 / mass, Z: 2.5 / mass}
	}
	b.updateWorldInertia()
}

// SetCollider installs the collider and recomputes inertia.
func (b *RigidBody) SetCollider(c *Collider) {
	b.Collider = c
	b.SetMass(b.Mass)
}

// InverseMass is 1/mass for dynamic bodies, 0 otherwise.
func (b *RigidBody) InverseMass() float32 { return b.invMass }

// updateWorldInertia refreshes I⁻¹_world = R · I⁻¹_local · Rᵀ.
func (b *RigidBody) updateWorldInertia() {
	if b.invMass == 0 {
		b.invInertiaWorld = math3d.Mat3{}
		return
	}
	r := math3d.Mat3FromQuat(b.Rotation)
	b.invInertiaWorld = r.Mul(math3d.Mat3Diagonal(b.invInertiaLocal)).Mul(r.Transpose())
}

// AddForce accumulates a force (N) through the center of mass.
func (b *RigidBody) AddForce(f math3d.Vec3) {
	if b.Type != Dynamic || f.IsNaN() {
		return
	}
	b.force = b.force.Add(f)
	b.WakeUp()
}

// AddForceAtPoint accumulates a force applied at a world-space point,
// inducing torque about the center of mass.
func (b *RigidBody) AddForceAtPoint(f, point math3d.Vec3) {
	if b.Type != Dynamic || f.IsNaN() || point.IsNaN() {
		return
	}
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(point.Sub(b.Position).Cross(f))
	b.WakeUp()
}

// AddTorque accumulates a torque (N·m).
func (b *RigidBody) AddTorque(t math3d.Vec3) {
	if b.Type != Dynamic || t.IsNaN() {
		return
	}
	b.torque = b.torque.Add(t)
	b.WakeUp()
}

// ApplyImpulse changes linear velocity immediately (N·s through the center).
func (b *RigidBody) ApplyImpulse(impulse math3d.Vec3) {
	if b.invMass == 0 || impulse.IsNaN() {
		return
	}
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Scale(b.invMass))
	b.WakeUp()
}

// ApplyImpulseAt changes linear and angular velocity for an impulse applied
// at a world-space point.
func (b *RigidBody) ApplyImpulseAt(impulse, point math3d.Vec3) {
	if b.invMass == 0 || impulse.IsNaN() || point.IsNaN() {
		return
	}
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Scale(b.invMass))
	r := point.Sub(b.Position)
	b.AngularVelocity = b.AngularVelocity.Add(b.invInertiaWorld.MulVec3(r.Cross(impulse)))
	b.WakeUp()
}

// applyImpulseAtNoWake is the solver-internal variant; contacts decide
// separately whether to wake bodies.
func (b *RigidBody) applyImpulseAtNoWake(impulse, point math3d.Vec3) {
	if b.invMass == 0 {
		return
	}
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Scale(b.invMass))
	r := point.Sub(b.Position)
	b.AngularVelocity = b.AngularVelocity.Add(b.invInertiaWorld.MulVec3(r.Cross(impulse)))
}

// VelocityAt returns the velocity of the body surface point p.
func (b *RigidBody) VelocityAt(p math3d.Vec3) math3d.Vec3 {
	return b.LinearVelocity.Add(b.AngularVelocity.Cross(p.Sub(b.Position)))
}

// IsSleeping reports whether the body is in the sleeping state.
func (b *RigidBody) IsSleeping() bool { return b.sleeping }

// WakeUp clears the sleep state and timer.
func (b *RigidBody) WakeUp() {
	b.sleeping = false
	b.sleepTimer = 0
}

// Sleep forces the body to sleep, zeroing velocities.
func (b *RigidBody) Sleep() {
	if !b.CanSleep || b.Type != Dynamic {
		return
	}
	b.sleeping = true
	b.LinearVelocity = math3d.Zero3
	b.AngularVelocity = math3d.Zero3
}

// AABB returns the world-space bounds of the body's collider, or a point box
// at the body position when no collider is attached.
func (b *RigidBody) AABB() math3d.AABB {
	if b.Collider == nil {
		return math3d.AABB{Min: b.Position, Max: b.Position}
	}
	return b.Collider.bounds(b.Position, b.Rotation)
}

// degenerate reports whether the body state is unusable this step.
func (b *RigidBody) degenerate() bool {
	return b.Position.IsNaN() || b.Rotation.IsNaN() ||
		b.LinearVelocity.IsNaN() || b.AngularVelocity.IsNaN()
}
