// Package physics implements a fixed-timestep rigid body simulation with
// impulse-based contact resolution, joints, triggers and spatial queries.
package physics

import (
	"sort"

	"go.uber.org/zap"

	"helix3d/internal/math3d"
)

// Settings tunes the simulation. Zero values are replaced by defaults when
// the world is created.
type Settings struct {
	Gravity math3d.Vec3

	// FixedTimeStep is the simulation tick in seconds.
	FixedTimeStep float32
	// MaxDeltaTime clamps the frame delta fed to Step so a stall cannot
	// trigger a spiral of death.
	MaxDeltaTime float32

	VelocityIterations int
	PositionIterations int

	// PenetrationSlop is the overlap tolerated before position correction.
	PenetrationSlop float32
	// PositionCorrection is the fraction of remaining penetration removed
	// per position iteration.
	PositionCorrection float32

	// SleepVelocityThreshold is the speed below which the sleep timer runs.
	SleepVelocityThreshold float32
	// SleepTime is how long a body must stay slow before it sleeps.
	SleepTime float32
	// DisableSleeping keeps every body awake regardless of speed.
	DisableSleeping bool

	// GPUBroadPhaseThreshold switches pair finding to the compute path when
	// the body count reaches it and a GPU broadphase is installed.
	GPUBroadPhaseThreshold int
}

// DefaultSettings returns the tuning used by the demo scenes.
func DefaultSettings() Settings {
	return Settings{
		Gravity:                math3d.Vec3{Y: -9.81},
		FixedTimeStep:          1.0 / 60.0,
		MaxDeltaTime:           0.25,
		VelocityIterations:     8,
		PositionIterations:     3,
		PenetrationSlop:        0.005,
		PositionCorrection:     0.2,
		SleepVelocityThreshold: 0.05,
		SleepTime:              0.5,
		GPUBroadPhaseThreshold: 512,
	}
}

func (s *Settings) applyDefaults() {
	d := DefaultSettings()
	if s.FixedTimeStep <= 0 {
		s.FixedTimeStep = d.FixedTimeStep
	}
	if s.MaxDeltaTime <= 0 {
		s.MaxDeltaTime = d.MaxDeltaTime
	}
	if s.VelocityIterations <= 0 {
		s.VelocityIterations = d.VelocityIterations
	}
	if s.PositionIterations <= 0 {
		s.PositionIterations = d.PositionIterations
	}
	if s.PenetrationSlop <= 0 {
		s.PenetrationSlop = d.PenetrationSlop
	}
	if s.PositionCorrection <= 0 {
		s.PositionCorrection = d.PositionCorrection
	}
	if s.SleepVelocityThreshold <= 0 {
		s.SleepVelocityThreshold = d.SleepVelocityThreshold
	}
	if s.SleepTime <= 0 {
		s.SleepTime = d.SleepTime
	}
	if s.GPUBroadPhaseThreshold <= 0 {
		s.GPUBroadPhaseThreshold = d.GPUBroadPhaseThreshold
	}
}

// pairKey identifies an unordered body pair by their IDs, low first.
type pairKey struct {
	lo, hi uint32
}

func makePairKey(a, b uint32) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// CollisionCallback receives contact events. Bodies are ordered by ID.
type CollisionCallback func(a, b *RigidBody, info *CollisionInfo)

// TriggerCallback receives trigger overlap events. trigger is the body whose
// collider has IsTrigger set; other is the body that entered it.
type TriggerCallback func(trigger, other *RigidBody)

// World owns all bodies and constraints and advances the simulation with a
// fixed-timestep accumulator. Bodies are kept ID-ordered so stepping is
// deterministic for identical inputs.
type World struct {
	Settings Settings

	bodies      []*RigidBody
	bodyIndex   map[uint32]int
	constraints []*Constraint

	nextBodyID       uint32
	nextConstraintID uint32

	accumulator float32

	activePairs  map[pairKey]*CollisionInfo
	prevPairs    map[pairKey]struct{}
	triggerPairs map[pairKey]struct{}
	prevTriggers map[pairKey]struct{}

	// scratch reused across steps
	pairBuf []bodyPair

	gpuBroadphase GPUBroadPhase

	OnCollisionEnter CollisionCallback
	OnCollisionStay  CollisionCallback
	OnCollisionExit  func(a, b *RigidBody)
	OnTriggerEnter   TriggerCallback
	OnTriggerExit    TriggerCallback

	log *zap.Logger
}

// NewWorld creates an empty world. A nil logger disables logging.
func NewWorld(settings Settings, log *zap.Logger) *World {
	settings.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		Settings:     settings,
		bodyIndex:    make(map[uint32]int),
		activePairs:  make(map[pairKey]*CollisionInfo),
		prevPairs:    make(map[pairKey]struct{}),
		triggerPairs: make(map[pairKey]struct{}),
		prevTriggers: make(map[pairKey]struct{}),
		nextBodyID:   1,
		log:          log,
	}
}

// SetGPUBroadPhase installs a compute-shader pair finder used once the body
// count reaches Settings.GPUBroadPhaseThreshold.
func (w *World) SetGPUBroadPhase(bp GPUBroadPhase) { w.gpuBroadphase = bp }

// CreateBody adds a body of the given type at pos and returns it.
func (w *World) CreateBody(t BodyType, pos math3d.Vec3) *RigidBody {
	b := newBody(w.nextBodyID, t, pos)
	w.nextBodyID++
	w.bodyIndex[b.ID] = len(w.bodies)
	w.bodies = append(w.bodies, b)
	return b
}

// DestroyBody removes the body and any constraints referencing it. Contact
// and trigger pairs involving it are dropped without exit events.
func (w *World) DestroyBody(b *RigidBody) {
	idx, ok := w.bodyIndex[b.ID]
	if !ok {
		return
	}
	w.bodies = append(w.bodies[:idx], w.bodies[idx+1:]...)
	delete(w.bodyIndex, b.ID)
	for i := idx; i < len(w.bodies); i++ {
		w.bodyIndex[w.bodies[i].ID] = i
	}

	kept := w.constraints[:0]
	for _, c := range w.constraints {
		if c.BodyA != b && c.BodyB != b {
			kept = append(kept, c)
		}
	}
	w.constraints = kept

	for key := range w.activePairs {
		if key.lo == b.ID || key.hi == b.ID {
			delete(w.activePairs, key)
			delete(w.prevPairs, key)
		}
	}
	for key := range w.triggerPairs {
		if key.lo == b.ID || key.hi == b.ID {
			delete(w.triggerPairs, key)
			delete(w.prevTriggers, key)
		}
	}
}

// Body returns the body with the given ID, or nil.
func (w *World) Body(id uint32) *RigidBody {
	if idx, ok := w.bodyIndex[id]; ok {
		return w.bodies[idx]
	}
	return nil
}

// Bodies returns the live body slice in ID order. Callers must not mutate it.
func (w *World) Bodies() []*RigidBody { return w.bodies }

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return len(w.bodies) }

// Step advances the simulation by dt seconds of wall time, running as many
// fixed ticks as the accumulator allows. dt is clamped to MaxDeltaTime.
func (w *World) Step(dt float32) {
	if dt <= 0 {
		return
	}
	if dt > w.Settings.MaxDeltaTime {
		dt = w.Settings.MaxDeltaTime
	}
	w.accumulator += dt
	for w.accumulator >= w.Settings.FixedTimeStep {
		w.fixedStep(w.Settings.FixedTimeStep)
		w.accumulator -= w.Settings.FixedTimeStep
	}
}

// Alpha returns the interpolation factor in [0,1) between the last two fixed
// ticks, for render-side transform interpolation.
func (w *World) Alpha() float32 {
	return w.accumulator / w.Settings.FixedTimeStep
}

// fixedStep runs one simulation tick.
func (w *World) fixedStep(dt float32) {
	// 1. forces and gravity → velocities
	w.integrateForces(dt)

	// 2. broadphase candidate pairs
	pairs := w.broadphase()

	// 3. narrowphase contacts
	collisions, triggers := w.narrowphase(pairs)

	// 4. contact and trigger events against the previous tick
	w.dispatchEvents(collisions, triggers)

	// 5. wake bodies touched by awake bodies
	w.propagateWake(collisions)

	// 6. joints and contact velocity solving, interleaved per iteration
	for _, c := range w.constraints {
		c.beginTick()
		// a joint never lets one side sleep while the other moves
		if c.BodyA.sleeping != c.BodyB.sleeping {
			c.BodyA.WakeUp()
			c.BodyB.WakeUp()
		}
	}
	for i := 0; i < w.Settings.VelocityIterations; i++ {
		for _, c := range w.constraints {
			c.solveVelocity(dt)
		}
		for _, info := range collisions {
			solveVelocity(info)
		}
	}
	w.pruneBroken(dt)

	// 7. position correction
	for i := 0; i < w.Settings.PositionIterations; i++ {
		for _, info := range collisions {
			solvePosition(info, w.Settings.PenetrationSlop, w.Settings.PositionCorrection)
		}
		for _, c := range w.constraints {
			c.solvePosition()
		}
	}

	// 8. integrate positions and rotations
	w.integrateVelocities(dt)

	// 9. sleep bookkeeping
	w.updateSleep(dt)
}

func (w *World) integrateForces(dt float32) {
	g := w.Settings.Gravity
	for _, b := range w.bodies {
		if b.Type != Dynamic || b.sleeping {
			b.force = math3d.Zero3
			b.torque = math3d.Zero3
			continue
		}
		if b.degenerate() {
			w.quarantine(b)
			continue
		}

		accel := g.Scale(b.GravityScale).Add(b.force.Scale(b.invMass))
		b.LinearVelocity = b.LinearVelocity.Add(accel.Scale(dt))
		b.AngularVelocity = b.AngularVelocity.Add(b.invInertiaWorld.MulVec3(b.torque).Scale(dt))

		if b.LinearDamping > 0 {
			b.LinearVelocity = b.LinearVelocity.Scale(1 / (1 + dt*b.LinearDamping))
		}
		if b.AngularDamping > 0 {
			b.AngularVelocity = b.AngularVelocity.Scale(1 / (1 + dt*b.AngularDamping))
		}

		b.force = math3d.Zero3
		b.torque = math3d.Zero3
	}
}

func (w *World) integrateVelocities(dt float32) {
	for _, b := range w.bodies {
		if b.Type == Static || b.sleeping {
			continue
		}
		if b.degenerate() {
			w.quarantine(b)
			continue
		}
		b.Position = b.Position.Add(b.LinearVelocity.Scale(dt))
		b.Rotation = b.Rotation.Integrate(b.AngularVelocity, dt)
		b.updateWorldInertia()
	}
}

// quarantine zeroes a body whose state went non-finite so one bad body cannot
// poison the rest of the island.
func (w *World) quarantine(b *RigidBody) {
	w.log.Warn("body state became non-finite, resetting velocities",
		zap.Uint32("body", b.ID))
	b.LinearVelocity = math3d.Zero3
	b.AngularVelocity = math3d.Zero3
	b.force = math3d.Zero3
	b.torque = math3d.Zero3
	if b.Position.IsNaN() {
		b.Position = math3d.Zero3
	}
	if b.Rotation.IsNaN() {
		b.Rotation = math3d.QuatIdentity()
	}
}

// narrowphase runs exact tests on the candidate pairs and splits results into
// solvable contacts and trigger overlaps.
func (w *World) narrowphase(pairs []bodyPair) ([]*CollisionInfo, map[pairKey]*CollisionInfo) {
	for k := range w.activePairs {
		delete(w.activePairs, k)
	}
	triggers := make(map[pairKey]*CollisionInfo)

	var collisions []*CollisionInfo
	for _, p := range pairs {
		info, ok := collide(p.a, p.b)
		if !ok {
			continue
		}
		key := makePairKey(p.a.ID, p.b.ID)
		if info.ColliderA.IsTrigger || info.ColliderB.IsTrigger {
			triggers[key] = &info
			continue
		}
		c := info
		w.activePairs[key] = &c
		collisions = append(collisions, &c)
	}

	// deterministic solve order
	sort.Slice(collisions, func(i, j int) bool {
		ki := makePairKey(collisions[i].BodyA.ID, collisions[i].BodyB.ID)
		kj := makePairKey(collisions[j].BodyA.ID, collisions[j].BodyB.ID)
		if ki.lo != kj.lo {
			return ki.lo < kj.lo
		}
		return ki.hi < kj.hi
	})
	return collisions, triggers
}

// dispatchEvents diffs the current contact and trigger sets against the
// previous tick and fires enter/stay/exit callbacks.
func (w *World) dispatchEvents(collisions []*CollisionInfo, triggers map[pairKey]*CollisionInfo) {
	for _, info := range collisions {
		key := makePairKey(info.BodyA.ID, info.BodyB.ID)
		a, b := w.orderPair(info.BodyA, info.BodyB)
		if _, seen := w.prevPairs[key]; seen {
			if w.OnCollisionStay != nil {
				w.OnCollisionStay(a, b, info)
			}
		} else if w.OnCollisionEnter != nil {
			w.OnCollisionEnter(a, b, info)
		}
	}
	if w.OnCollisionExit != nil {
		for key := range w.prevPairs {
			if _, still := w.activePairs[key]; !still {
				a, b := w.Body(key.lo), w.Body(key.hi)
				if a != nil && b != nil {
					w.OnCollisionExit(a, b)
				}
			}
		}
	}
	for k := range w.prevPairs {
		delete(w.prevPairs, k)
	}
	for key := range w.activePairs {
		w.prevPairs[key] = struct{}{}
	}

	for key, info := range triggers {
		if _, seen := w.prevTriggers[key]; !seen && w.OnTriggerEnter != nil {
			trigger, other := w.triggerOrder(info)
			w.OnTriggerEnter(trigger, other)
		}
	}
	if w.OnTriggerExit != nil {
		for key := range w.prevTriggers {
			if _, still := triggers[key]; !still {
				a, b := w.Body(key.lo), w.Body(key.hi)
				if a == nil || b == nil {
					continue
				}
				trigger, other := a, b
				if trigger.Collider == nil || !trigger.Collider.IsTrigger {
					trigger, other = b, a
				}
				w.OnTriggerExit(trigger, other)
			}
		}
	}
	for k := range w.prevTriggers {
		delete(w.prevTriggers, k)
	}
	for key := range triggers {
		w.prevTriggers[key] = struct{}{}
	}
	for k := range w.triggerPairs {
		delete(w.triggerPairs, k)
	}
	for key := range triggers {
		w.triggerPairs[key] = struct{}{}
	}
}

func (w *World) orderPair(a, b *RigidBody) (*RigidBody, *RigidBody) {
	if a.ID > b.ID {
		return b, a
	}
	return a, b
}

func (w *World) triggerOrder(info *CollisionInfo) (trigger, other *RigidBody) {
	if info.ColliderA.IsTrigger {
		return info.BodyA, info.BodyB
	}
	return info.BodyB, info.BodyA
}

// propagateWake wakes sleeping bodies that an awake body is touching.
func (w *World) propagateWake(collisions []*CollisionInfo) {
	for _, info := range collisions {
		a, b := info.BodyA, info.BodyB
		awakeA := !a.sleeping && a.Type != Static
		awakeB := !b.sleeping && b.Type != Static
		if awakeA && b.sleeping {
			b.WakeUp()
		}
		if awakeB && a.sleeping {
			a.WakeUp()
		}
	}
}

// pruneBroken drops constraints whose applied force exceeded their break
// threshold this tick.
func (w *World) pruneBroken(dt float32) {
	kept := w.constraints[:0]
	for _, c := range w.constraints {
		c.checkBreak(dt)
		if c.broken {
			w.log.Info("constraint broke",
				zap.Uint32("constraint", c.ID),
				zap.Stringer("kind", c.Kind))
			continue
		}
		kept = append(kept, c)
	}
	w.constraints = kept
}

// updateSleep advances per-body sleep timers and puts slow bodies to sleep.
func (w *World) updateSleep(dt float32) {
	if w.Settings.DisableSleeping {
		return
	}
	threshSq := w.Settings.SleepVelocityThreshold * w.Settings.SleepVelocityThreshold
	for _, b := range w.bodies {
		if b.Type != Dynamic || b.sleeping || !b.CanSleep {
			continue
		}
		speedSq := b.LinearVelocity.LengthSq() + b.AngularVelocity.LengthSq()
		if speedSq < threshSq {
			b.sleepTimer += dt
			if b.sleepTimer >= w.Settings.SleepTime {
				b.Sleep()
			}
		} else {
			b.sleepTimer = 0
		}
	}
}
