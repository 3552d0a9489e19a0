package physics

import (
	"github.com/chewxy/math32"

	"helix3d/internal/math3d"
)

// solveVelocity applies impulse-based contact resolution for one collision.
// Called once per velocity iteration; impulses accumulate across iterations.
func solveVelocity(info *CollisionInfo) {
	a, b := info.BodyA, info.BodyB
	invMassSum := a.invMass + b.invMass
	if invMassSum == 0 {
		return
	}

	e := math32.Min(a.Restitution, b.Restitution)
	mu := math32.Sqrt(a.Friction * b.Friction)
	n := info.Normal

	for _, contact := range info.Contacts {
		ra := contact.Sub(a.Position)
		rb := contact.Sub(b.Position)

		// relative velocity of B w.r.t. A at the contact
		rv := b.VelocityAt(contact).Sub(a.VelocityAt(contact))
		vn := rv.Dot(n)
		if vn > 0 {
			continue // separating
		}

		// effective mass along the normal includes the angular terms
		raCrossN := ra.Cross(n)
		rbCrossN := rb.Cross(n)
		denom := invMassSum +
			n.Dot(a.invInertiaWorld.MulVec3(raCrossN).Cross(ra)) +
			n.Dot(b.invInertiaWorld.MulVec3(rbCrossN).Cross(rb))
		if denom < 1e-8 {
			continue
		}

		j := -(1 + e) * vn / denom
		impulse := n.Scale(j)
		a.applyImpulseAtNoWake(impulse.Neg(), contact)
		b.applyImpulseAtNoWake(impulse, contact)

		// Coulomb friction along the tangent, clamped to μ·j
		rv = b.VelocityAt(contact).Sub(a.VelocityAt(contact))
		tangent := rv.Sub(n.Scale(rv.Dot(n)))
		tLen := tangent.Length()
		if tLen < 1e-6 {
			continue
		}
		tangent = tangent.Scale(1 / tLen)

		raCrossT := ra.Cross(tangent)
		rbCrossT := rb.Cross(tangent)
		tDenom := invMassSum +
			tangent.Dot(a.invInertiaWorld.MulVec3(raCrossT).Cross(ra)) +
			tangent.Dot(b.invInertiaWorld.MulVec3(rbCrossT).Cross(rb))
		if tDenom < 1e-8 {
			continue
		}

		jt := -rv.Dot(tangent) / tDenom
		maxFriction := mu * j
		jt = math3d.Clamp(jt, -maxFriction, maxFriction)

		frictionImpulse := tangent.Scale(jt)
		a.applyImpulseAtNoWake(frictionImpulse.Neg(), contact)
		b.applyImpulseAtNoWake(frictionImpulse, contact)
	}
}

// solvePosition pushes the pair apart along the contact normal to remove
// penetration beyond the slop, split by inverse mass.
func solvePosition(info *CollisionInfo, slop, factor float32) {
	a, b := info.BodyA, info.BodyB
	invMassSum := a.invMass + b.invMass
	if invMassSum == 0 {
		return
	}

	depth := info.Penetration - slop
	if depth <= 0 {
		return
	}

	correction := info.Normal.Scale(depth * factor / invMassSum)
	if a.invMass > 0 {
		a.Position = a.Position.Sub(correction.Scale(a.invMass))
	}
	if b.invMass > 0 {
		b.Position = b.Position.Add(correction.Scale(b.invMass))
	}
}
