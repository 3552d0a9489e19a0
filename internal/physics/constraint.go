package physics

import (
	"github.com/chewxy/math32"

	"helix3d/internal/math3d"
)

// ConstraintKind selects the joint behavior of a Constraint.
type ConstraintKind uint8

const (
	// ConstraintDistance keeps the anchor points at a fixed distance.
	ConstraintDistance ConstraintKind = iota
	// ConstraintBallSocket pins the anchor points together, rotation free.
	ConstraintBallSocket
	// ConstraintHinge pins the anchors and allows rotation about one axis,
	// optionally limited and motorized.
	ConstraintHinge
	// ConstraintSlider allows translation along one axis, rotation locked.
	ConstraintSlider
	// ConstraintFixed welds the two bodies together.
	ConstraintFixed
	// ConstraintSpring applies a damped spring force between the anchors.
	ConstraintSpring
	// ConstraintCone pins the anchors and limits the swing of the axis to a
	// maximum cone angle.
	ConstraintCone
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintDistance:
		return "distance"
	case ConstraintBallSocket:
		return "ballsocket"
	case ConstraintHinge:
		return "hinge"
	case ConstraintSlider:
		return "slider"
	case ConstraintFixed:
		return "fixed"
	case ConstraintSpring:
		return "spring"
	case ConstraintCone:
		return "cone"
	}
	return "unknown"
}

// baumgarte is the bias factor feeding positional error back into the
// velocity constraint.
const baumgarte float32 = 0.2

// Constraint joins two bodies. Fields beyond the kind's use are ignored.
// Constraints are created through the World constructors and solved during
// the velocity iterations of each tick.
type Constraint struct {
	ID   uint32
	Kind ConstraintKind

	BodyA, BodyB *RigidBody

	// Anchors in each body's local space.
	LocalAnchorA, LocalAnchorB math3d.Vec3
	// Joint axis in BodyA's local space (hinge, slider, cone).
	LocalAxisA math3d.Vec3

	// Distance and spring rest length.
	RestLength float32
	// Spring coefficients.
	Stiffness, Damping float32

	// Angular limits in radians (hinge, cone) or translation limits along
	// the axis (slider).
	EnableLimits       bool
	MinLimit, MaxLimit float32

	// Hinge motor.
	EnableMotor    bool
	MotorSpeed     float32
	MaxMotorTorque float32

	// BreakForce breaks the joint when the applied force exceeds it.
	// Zero means unbreakable.
	BreakForce float32

	// Captured at creation for fixed and slider joints.
	initOffsetA math3d.Vec3
	initRelRot  math3d.Quat

	broken      bool
	tickImpulse float32
	springFired bool
}

// Broken reports whether the joint has exceeded its BreakForce.
func (c *Constraint) Broken() bool { return c.broken }

// AddConstraint registers a prepared constraint. Most callers use the typed
// constructors instead.
func (w *World) AddConstraint(c *Constraint) *Constraint {
	c.ID = w.nextConstraintID
	w.nextConstraintID++
	if c.LocalAxisA.LengthSq() > 0 {
		c.LocalAxisA = c.LocalAxisA.Normalize()
	}
	c.captureRest()
	w.constraints = append(w.constraints, c)
	c.BodyA.WakeUp()
	c.BodyB.WakeUp()
	return c
}

// RemoveConstraint detaches the constraint from the world.
func (w *World) RemoveConstraint(c *Constraint) {
	for i, existing := range w.constraints {
		if existing == c {
			w.constraints = append(w.constraints[:i], w.constraints[i+1:]...)
			return
		}
	}
}

// Constraints returns the live constraints. Callers must not mutate the slice.
func (w *World) Constraints() []*Constraint { return w.constraints }

// NewDistanceConstraint keeps the world-space anchors at their current
// distance.
func (w *World) NewDistanceConstraint(a, b *RigidBody, anchorA, anchorB math3d.Vec3) *Constraint {
	c := &Constraint{
		Kind:         ConstraintDistance,
		BodyA:        a,
		BodyB:        b,
		LocalAnchorA: a.toLocal(anchorA),
		LocalAnchorB: b.toLocal(anchorB),
		RestLength:   anchorB.Sub(anchorA).Length(),
	}
	return w.AddConstraint(c)
}

// NewBallSocketConstraint pins both bodies to the world-space point.
func (w *World) NewBallSocketConstraint(a, b *RigidBody, pivot math3d.Vec3) *Constraint {
	c := &Constraint{
		Kind:         ConstraintBallSocket,
		BodyA:        a,
		BodyB:        b,
		LocalAnchorA: a.toLocal(pivot),
		LocalAnchorB: b.toLocal(pivot),
	}
	return w.AddConstraint(c)
}

// NewHingeConstraint pins both bodies to the pivot and restricts rotation to
// the world-space axis.
func (w *World) NewHingeConstraint(a, b *RigidBody, pivot, axis math3d.Vec3) *Constraint {
	c := &Constraint{
		Kind:         ConstraintHinge,
		BodyA:        a,
		BodyB:        b,
		LocalAnchorA: a.toLocal(pivot),
		LocalAnchorB: b.toLocal(pivot),
		LocalAxisA:   a.Rotation.Conjugate().Rotate(axis.Normalize()),
	}
	return w.AddConstraint(c)
}

// NewSliderConstraint locks relative rotation and restricts translation to
// the world-space axis through BodyA's position.
func (w *World) NewSliderConstraint(a, b *RigidBody, axis math3d.Vec3) *Constraint {
	c := &Constraint{
		Kind:       ConstraintSlider,
		BodyA:      a,
		BodyB:      b,
		LocalAxisA: a.Rotation.Conjugate().Rotate(axis.Normalize()),
	}
	return w.AddConstraint(c)
}

// NewFixedConstraint welds the bodies in their current relative pose.
func (w *World) NewFixedConstraint(a, b *RigidBody) *Constraint {
	c := &Constraint{
		Kind:  ConstraintFixed,
		BodyA: a,
		BodyB: b,
	}
	return w.AddConstraint(c)
}

// NewSpringConstraint connects the world-space anchors with a damped spring
// of the given rest length.
func (w *World) NewSpringConstraint(a, b *RigidBody, anchorA, anchorB math3d.Vec3, restLength, stiffness, damping float32) *Constraint {
	c := &Constraint{
		Kind:         ConstraintSpring,
		BodyA:        a,
		BodyB:        b,
		LocalAnchorA: a.toLocal(anchorA),
		LocalAnchorB: b.toLocal(anchorB),
		RestLength:   restLength,
		Stiffness:    stiffness,
		Damping:      damping,
	}
	return w.AddConstraint(c)
}

// NewConeConstraint pins both bodies to the pivot and limits the swing of the
// axis to maxAngle radians.
func (w *World) NewConeConstraint(a, b *RigidBody, pivot, axis math3d.Vec3, maxAngle float32) *Constraint {
	c := &Constraint{
		Kind:         ConstraintCone,
		BodyA:        a,
		BodyB:        b,
		LocalAnchorA: a.toLocal(pivot),
		LocalAnchorB: b.toLocal(pivot),
		LocalAxisA:   a.Rotation.Conjugate().Rotate(axis.Normalize()),
		EnableLimits: true,
		MaxLimit:     maxAngle,
	}
	return w.AddConstraint(c)
}

func (b *RigidBody) toLocal(world math3d.Vec3) math3d.Vec3 {
	return b.Rotation.Conjugate().Rotate(world.Sub(b.Position))
}

func (c *Constraint) captureRest() {
	switch c.Kind {
	case ConstraintFixed, ConstraintSlider:
		c.initOffsetA = c.BodyA.toLocal(c.BodyB.Position)
		c.initRelRot = c.BodyA.Rotation.Conjugate().Mul(c.BodyB.Rotation)
	}
	if c.Kind == ConstraintFixed {
		// anchor A at B's captured position so the point constraint
		// preserves the weld offset instead of collapsing the centers
		c.LocalAnchorA = c.initOffsetA
		c.LocalAnchorB = math3d.Zero3
	}
}

func (c *Constraint) anchors() (pa, pb math3d.Vec3) {
	pa = c.BodyA.Position.Add(c.BodyA.Rotation.Rotate(c.LocalAnchorA))
	pb = c.BodyB.Position.Add(c.BodyB.Rotation.Rotate(c.LocalAnchorB))
	return
}

func (c *Constraint) worldAxis() math3d.Vec3 {
	return c.BodyA.Rotation.Rotate(c.LocalAxisA)
}

// beginTick resets the per-tick impulse accumulator used for break checks.
func (c *Constraint) beginTick() {
	c.tickImpulse = 0
	c.springFired = false
}

// checkBreak marks the joint broken once the per-tick force exceeds the
// configured limit.
func (c *Constraint) checkBreak(dt float32) {
	if c.BreakForce > 0 && c.tickImpulse/dt > c.BreakForce {
		c.broken = true
	}
}

// solveVelocity runs one Gauss-Seidel pass over the joint's velocity
// constraints.
func (c *Constraint) solveVelocity(dt float32) {
	if c.broken {
		return
	}
	switch c.Kind {
	case ConstraintDistance:
		c.solveDistance(dt)
	case ConstraintBallSocket:
		c.solvePointVelocity(dt)
	case ConstraintHinge:
		c.solvePointVelocity(dt)
		c.solveHingeAngular(dt)
	case ConstraintSlider:
		c.solveSlider(dt)
	case ConstraintFixed:
		c.solvePointVelocity(dt)
		c.solveLockRotation(dt)
	case ConstraintSpring:
		c.applySpring(dt)
	case ConstraintCone:
		c.solvePointVelocity(dt)
		c.solveConeLimit(dt)
	}
}

func (c *Constraint) solveDistance(dt float32) {
	pa, pb := c.anchors()
	d := pb.Sub(pa)
	dist := d.Length()
	if dist < 1e-6 {
		return
	}
	n := d.Scale(1 / dist)
	err := dist - c.RestLength

	a, b := c.BodyA, c.BodyB
	vRel := b.VelocityAt(pb).Sub(a.VelocityAt(pa)).Dot(n)
	denom := c.pointDenom(n, pa, pb)
	if denom < 1e-8 {
		return
	}

	lambda := -(vRel + baumgarte/dt*err) / denom
	impulse := n.Scale(lambda)
	a.applyImpulseAtNoWake(impulse.Neg(), pa)
	b.applyImpulseAtNoWake(impulse, pb)
	c.tickImpulse += math32.Abs(lambda)
}

// solvePointVelocity removes relative velocity at the anchor point, one world
// axis at a time. The diagonal approximation converges across the velocity
// iterations.
func (c *Constraint) solvePointVelocity(dt float32) {
	pa, pb := c.anchors()
	err := pb.Sub(pa)
	a, b := c.BodyA, c.BodyB

	axes := [3]math3d.Vec3{{X: 1}, {Y: 1}, {Z: 1}}
	errs := [3]float32{err.X, err.Y, err.Z}
	for i, n := range axes {
		vRel := b.VelocityAt(pb).Sub(a.VelocityAt(pa)).Dot(n)
		denom := c.pointDenom(n, pa, pb)
		if denom < 1e-8 {
			continue
		}
		lambda := -(vRel + baumgarte/dt*errs[i]) / denom
		impulse := n.Scale(lambda)
		a.applyImpulseAtNoWake(impulse.Neg(), pa)
		b.applyImpulseAtNoWake(impulse, pb)
		c.tickImpulse += math32.Abs(lambda)
	}
}

func (c *Constraint) pointDenom(n, pa, pb math3d.Vec3) float32 {
	a, b := c.BodyA, c.BodyB
	ra := pa.Sub(a.Position)
	rb := pb.Sub(b.Position)
	return a.invMass + b.invMass +
		n.Dot(a.invInertiaWorld.MulVec3(ra.Cross(n)).Cross(ra)) +
		n.Dot(b.invInertiaWorld.MulVec3(rb.Cross(n)).Cross(rb))
}

func (c *Constraint) angularDenom(u math3d.Vec3) float32 {
	return u.Dot(c.BodyA.invInertiaWorld.MulVec3(u)) +
		u.Dot(c.BodyB.invInertiaWorld.MulVec3(u))
}

func (c *Constraint) applyAngularImpulse(impulse math3d.Vec3) {
	a, b := c.BodyA, c.BodyB
	if a.invMass > 0 {
		a.AngularVelocity = a.AngularVelocity.Sub(a.invInertiaWorld.MulVec3(impulse))
	}
	if b.invMass > 0 {
		b.AngularVelocity = b.AngularVelocity.Add(b.invInertiaWorld.MulVec3(impulse))
	}
}

// solveHingeAngular removes relative rotation perpendicular to the hinge axis
// and runs the limit and motor rows about it.
func (c *Constraint) solveHingeAngular(dt float32) {
	axis := c.worldAxis()
	a, b := c.BodyA, c.BodyB
	wRel := b.AngularVelocity.Sub(a.AngularVelocity)

	// kill the swing components
	perp := wRel.Sub(axis.Scale(wRel.Dot(axis)))
	if perpLen := perp.Length(); perpLen > 1e-8 {
		u := perp.Scale(1 / perpLen)
		denom := c.angularDenom(u)
		if denom > 1e-8 {
			lambda := -perpLen / denom
			c.applyAngularImpulse(u.Scale(lambda))
			c.tickImpulse += math32.Abs(lambda)
		}
	}

	if c.EnableLimits {
		angle := c.hingeAngle()
		denom := c.angularDenom(axis)
		if denom > 1e-8 {
			if angle < c.MinLimit {
				wAxis := b.AngularVelocity.Sub(a.AngularVelocity).Dot(axis)
				lambda := -(wAxis + baumgarte/dt*(angle-c.MinLimit)) / denom
				if lambda > 0 {
					c.applyAngularImpulse(axis.Scale(lambda))
					c.tickImpulse += lambda
				}
			} else if angle > c.MaxLimit {
				wAxis := b.AngularVelocity.Sub(a.AngularVelocity).Dot(axis)
				lambda := -(wAxis + baumgarte/dt*(angle-c.MaxLimit)) / denom
				if lambda < 0 {
					c.applyAngularImpulse(axis.Scale(lambda))
					c.tickImpulse += -lambda
				}
			}
		}
	}

	if c.EnableMotor {
		wAxis := b.AngularVelocity.Sub(a.AngularVelocity).Dot(axis)
		denom := c.angularDenom(axis)
		if denom > 1e-8 {
			lambda := (c.MotorSpeed - wAxis) / denom
			maxImpulse := c.MaxMotorTorque * dt
			lambda = math3d.Clamp(lambda, -maxImpulse, maxImpulse)
			c.applyAngularImpulse(axis.Scale(lambda))
		}
	}
}

// hingeAngle returns the twist of the relative rotation about the hinge axis,
// measured from the pose at creation.
func (c *Constraint) hingeAngle() float32 {
	rel := c.BodyA.Rotation.Conjugate().Mul(c.BodyB.Rotation)
	axis := c.LocalAxisA
	// twist decomposition: project the vector part onto the axis
	proj := axis.Scale(axis.Dot(math3d.Vec3{X: rel.X, Y: rel.Y, Z: rel.Z}))
	twist := math3d.Quat{W: rel.W, X: proj.X, Y: proj.Y, Z: proj.Z}.Normalize()
	angle := 2 * math32.Atan2(math3d.Vec3{X: twist.X, Y: twist.Y, Z: twist.Z}.Length(), twist.W)
	if (math3d.Vec3{X: twist.X, Y: twist.Y, Z: twist.Z}).Dot(axis) < 0 {
		angle = -angle
	}
	if angle > math32.Pi {
		angle -= 2 * math32.Pi
	}
	return angle
}

func (c *Constraint) solveSlider(dt float32) {
	axis := c.worldAxis()
	a, b := c.BodyA, c.BodyB

	// lock translation perpendicular to the axis
	offset := b.Position.Sub(a.Position)
	target := a.Rotation.Rotate(c.initOffsetA)
	err := offset.Sub(target)
	errPerp := err.Sub(axis.Scale(err.Dot(axis)))

	vRel := b.LinearVelocity.Sub(a.LinearVelocity)
	vPerp := vRel.Sub(axis.Scale(vRel.Dot(axis)))

	correction := vPerp.Add(errPerp.Scale(baumgarte / dt))
	if corrLen := correction.Length(); corrLen > 1e-8 {
		u := correction.Scale(1 / corrLen)
		denom := a.invMass + b.invMass
		if denom > 1e-8 {
			lambda := -corrLen / denom
			impulse := u.Scale(lambda)
			if a.invMass > 0 {
				a.LinearVelocity = a.LinearVelocity.Sub(impulse.Scale(a.invMass))
			}
			if b.invMass > 0 {
				b.LinearVelocity = b.LinearVelocity.Add(impulse.Scale(b.invMass))
			}
			c.tickImpulse += math32.Abs(lambda)
		}
	}

	if c.EnableLimits {
		travel := err.Dot(axis)
		denom := a.invMass + b.invMass
		if denom > 1e-8 {
			vAxis := b.LinearVelocity.Sub(a.LinearVelocity).Dot(axis)
			if travel < c.MinLimit {
				lambda := -(vAxis + baumgarte/dt*(travel-c.MinLimit)) / denom
				if lambda > 0 {
					c.applyAxisLinear(axis, lambda)
					c.tickImpulse += lambda
				}
			} else if travel > c.MaxLimit {
				lambda := -(vAxis + baumgarte/dt*(travel-c.MaxLimit)) / denom
				if lambda < 0 {
					c.applyAxisLinear(axis, lambda)
					c.tickImpulse += -lambda
				}
			}
		}
	}

	c.solveLockRotation(dt)
}

func (c *Constraint) applyAxisLinear(axis math3d.Vec3, lambda float32) {
	impulse := axis.Scale(lambda)
	a, b := c.BodyA, c.BodyB
	if a.invMass > 0 {
		a.LinearVelocity = a.LinearVelocity.Sub(impulse.Scale(a.invMass))
	}
	if b.invMass > 0 {
		b.LinearVelocity = b.LinearVelocity.Add(impulse.Scale(b.invMass))
	}
}

// solveLockRotation drives the relative rotation back to the pose captured at
// creation and cancels relative angular velocity.
func (c *Constraint) solveLockRotation(dt float32) {
	a, b := c.BodyA, c.BodyB
	wRel := b.AngularVelocity.Sub(a.AngularVelocity)

	// rotation error as an axis-angle vector
	rel := a.Rotation.Conjugate().Mul(b.Rotation)
	errRot := c.initRelRot.Conjugate().Mul(rel)
	axis, angle := errRot.ToAxisAngle()
	errVec := a.Rotation.Rotate(axis.Scale(angle))

	correction := wRel.Add(errVec.Scale(baumgarte / dt))
	if corrLen := correction.Length(); corrLen > 1e-8 {
		u := correction.Scale(1 / corrLen)
		denom := c.angularDenom(u)
		if denom > 1e-8 {
			lambda := -corrLen / denom
			c.applyAngularImpulse(u.Scale(lambda))
			c.tickImpulse += math32.Abs(lambda)
		}
	}
}

// applySpring applies the damped spring force as an impulse, once per tick.
// Springs are soft: they never appear in the break accounting.
func (c *Constraint) applySpring(dt float32) {
	if c.springFired {
		return
	}
	c.springFired = true
	pa, pb := c.anchors()
	d := pb.Sub(pa)
	dist := d.Length()
	if dist < 1e-6 {
		return
	}
	n := d.Scale(1 / dist)

	a, b := c.BodyA, c.BodyB
	vRel := b.VelocityAt(pb).Sub(a.VelocityAt(pa)).Dot(n)
	force := -c.Stiffness*(dist-c.RestLength) - c.Damping*vRel

	impulse := n.Scale(force * dt)
	a.applyImpulseAtNoWake(impulse.Neg(), pa)
	b.applyImpulseAtNoWake(impulse, pb)
}

// solveConeLimit pushes the swing of BodyB's axis back inside the cone.
func (c *Constraint) solveConeLimit(dt float32) {
	axisA := c.worldAxis()
	axisB := c.BodyB.Rotation.Rotate(c.LocalAxisA)

	cosAngle := math3d.Clamp(axisA.Dot(axisB), -1, 1)
	angle := math32.Acos(cosAngle)
	if angle <= c.MaxLimit {
		return
	}

	// swing axis is perpendicular to both
	swing := axisA.Cross(axisB)
	swingLen := swing.Length()
	if swingLen < 1e-8 {
		return
	}
	swing = swing.Scale(1 / swingLen)

	a, b := c.BodyA, c.BodyB
	wRel := b.AngularVelocity.Sub(a.AngularVelocity).Dot(swing)
	denom := c.angularDenom(swing)
	if denom < 1e-8 {
		return
	}
	lambda := -(wRel + baumgarte/dt*(angle-c.MaxLimit)) / denom
	if lambda < 0 {
		c.applyAngularImpulse(swing.Scale(lambda))
		c.tickImpulse += -lambda
	}
}

// solvePosition nudges anchored joints back together after integration.
func (c *Constraint) solvePosition() {
	if c.broken {
		return
	}
	switch c.Kind {
	case ConstraintBallSocket, ConstraintHinge, ConstraintFixed, ConstraintCone:
		c.correctAnchors(0.5)
	case ConstraintDistance:
		pa, pb := c.anchors()
		d := pb.Sub(pa)
		dist := d.Length()
		if dist < 1e-6 {
			return
		}
		n := d.Scale(1 / dist)
		err := dist - c.RestLength
		c.splitCorrection(n.Scale(err * 0.5))
	}
}

func (c *Constraint) correctAnchors(factor float32) {
	pa, pb := c.anchors()
	c.splitCorrection(pb.Sub(pa).Scale(factor))
}

func (c *Constraint) splitCorrection(err math3d.Vec3) {
	a, b := c.BodyA, c.BodyB
	invMassSum := a.invMass + b.invMass
	if invMassSum == 0 {
		return
	}
	correction := err.Scale(1 / invMassSum)
	if a.invMass > 0 {
		a.Position = a.Position.Add(correction.Scale(a.invMass))
	}
	if b.invMass > 0 {
		b.Position = b.Position.Sub(correction.Scale(b.invMass))
	}
}
