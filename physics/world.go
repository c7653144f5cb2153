// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/sorairo/mmdrt/math/lin"
)

// alloc counts active solver objects so a host can verify, after a full
// teardown, that nothing was leaked (the mirrored PMX ragdoll scenario:
// build N bodies and M joints, tick, destroy, expect zero everywhere).
var alloc struct {
	worlds       int
	shapes       int
	rigidBodies  int
	constraints  int
	motionStates int
}

// AllocCounts reports the current live solver object counts, in the order
// worlds, shapes, rigidBodies, constraints, motionStates.
func AllocCounts() (worlds, shapes, rigidBodies, constraints, motionStates int) {
	return alloc.worlds, alloc.shapes, alloc.rigidBodies, alloc.constraints, alloc.motionStates
}

// Body is a single rigid body in the world. Body lives entirely in the
// solver's left-handed physics space; callers that work in a right-handed
// skeleton space are expected to convert at the boundary (see Bridge).
type Body struct {
	id uint32

	shape Shape
	world *lin.T // current world transform.

	linVel *lin.V3
	angVel *lin.V3

	invMass        float64
	invInertiaLocal *lin.V3 // diagonal inverse inertia in body-local axes.

	linDamping, angDamping float64
	friction, restitution  float64

	kinematic           bool
	disableDeactivation bool
	noContactResponse   bool

	group, mask int

	w *World
}

// Transform returns the body's current transform. Callers must not retain the
// returned pointer past the next Step call on a non-kinematic body.
func (b *Body) Transform() *lin.T { return b.world }

// SetTransform overwrites the body's world transform, used by kinematic
// (FollowBone) bodies each tick before stepping.
func (b *Body) SetTransform(t *lin.T) *Body {
	b.world.Set(t)
	return b
}

// Velocity returns the body's linear and angular velocity.
func (b *Body) Velocity() (lin, ang *lin.V3) { return b.linVel, b.angVel }

// SetVelocity overwrites the body's linear and angular velocity.
func (b *Body) SetVelocity(linear, angular *lin.V3) *Body {
	b.linVel.Set(linear)
	b.angVel.Set(angular)
	return b
}

func (b *Body) invInertiaWorld() *lin.M3 {
	basis := lin.NewM3().SetQ(b.world.Rot)
	local := lin.NewM3().SetS(
		b.invInertiaLocal.X, 0, 0,
		0, b.invInertiaLocal.Y, 0,
		0, 0, b.invInertiaLocal.Z,
	)
	tmp := lin.NewM3().Mult(basis, local)
	bt := lin.NewM3().Transpose(basis)
	return lin.NewM3().Mult(tmp, bt)
}

// World owns the set of bodies and joints being simulated, plus global
// parameters (gravity, solver iteration count). Bodies and joints are removed before
// the world itself is discarded, mirroring the bundled solver's native
// teardown order: constraints, then bodies, then world.
type World struct {
	gravity    *lin.V3
	bodies     map[uint32]*Body
	joints     []*Joint
	nextID     uint32
	iterations int // velocity-correction passes per substep, see SetIterations.
}

// NewWorld creates an empty world with gravity gravityY along Y and a
// single constraint-solving pass per substep; call SetIterations to match a
// host's configured solver iteration count.
func NewWorld(gravityY float64) *World {
	alloc.worlds++
	return &World{
		gravity:    lin.NewV3().SetS(0, gravityY, 0),
		bodies:     map[uint32]*Body{},
		iterations: 1,
	}
}

// SetIterations sets how many times joint and contact correction run per
// substep. Values below 1 are ignored, leaving the current count unchanged.
func (w *World) SetIterations(n int) {
	if n > 0 {
		w.iterations = n
	}
}

// Destroy removes every joint and body from the world, matching the
// required removal-before-destruction teardown order.
func (w *World) Destroy() {
	for len(w.joints) > 0 {
		w.RemoveJoint(w.joints[0])
	}
	for _, b := range w.bodies {
		w.RemoveBody(b)
	}
	alloc.worlds--
}

// CreateSphere, CreateBox and CreateCapsule build solver shapes. Shapes do
// not belong to any one body and are not removed individually; they are
// reclaimed when the owning body is removed.
func (w *World) CreateSphere(radius float64) Shape {
	alloc.shapes++
	return NewSphere(radius)
}

func (w *World) CreateBox(hx, hy, hz float64) Shape {
	alloc.shapes++
	return NewBox(hx, hy, hz)
}

func (w *World) CreateCapsule(radius, halfLength float64) Shape {
	alloc.shapes++
	return NewCapsule(radius, halfLength)
}

// CreateBody allocates a rigid body with the given physical parameters and
// initial transform, but does not add it to the world; call AddBody.
func (w *World) CreateBody(mass, linDamping, angDamping, friction, restitution float64,
	kinematic, disableDeactivation, noContactResponse bool, shape Shape, world *lin.T) *Body {

	invMass := 0.0
	invInertia := lin.NewV3()
	if mass > 0 && !kinematic {
		invMass = 1.0 / mass
		inertia := shape.Inertia(mass, lin.NewV3())
		invInertia.SetS(safeInv(inertia.X), safeInv(inertia.Y), safeInv(inertia.Z))
	}

	b := &Body{
		shape:                shape,
		world:                lin.NewT().Set(world),
		linVel:               lin.NewV3(),
		angVel:               lin.NewV3(),
		invMass:              invMass,
		invInertiaLocal:      invInertia,
		linDamping:           linDamping,
		angDamping:           angDamping,
		friction:             friction,
		restitution:          restitution,
		kinematic:            kinematic,
		disableDeactivation:  disableDeactivation,
		noContactResponse:    noContactResponse,
	}
	alloc.rigidBodies++
	alloc.motionStates++
	return b
}

func safeInv(x float64) float64 {
	if x <= 1e-12 {
		return 0
	}
	return 1.0 / x
}

// AddBody inserts a body into the world with the given collision group
// (0..15) and mask of groups it collides with.
func (w *World) AddBody(b *Body, group, mask int) {
	if group < 0 {
		group = 0
	}
	if group > 15 {
		group = 15
	}
	b.group, b.mask = 1<<uint(group), mask
	w.nextID++
	b.id = w.nextID
	b.w = w
	w.bodies[b.id] = b
}

// RemoveBody removes a body from the world and releases its solver
// resources. Any joint still referencing the body should be removed first.
func (w *World) RemoveBody(b *Body) {
	if _, ok := w.bodies[b.id]; !ok {
		return
	}
	delete(w.bodies, b.id)
	alloc.shapes--
	alloc.rigidBodies--
	alloc.motionStates--
}

// Step advances the world by dt, split into fixedDt substeps capped at
// maxSubsteps; excess dt beyond maxSubsteps*fixedDt is dropped rather than
// overshot, trading determinism for a slow-down under load.
func (w *World) Step(dt, fixedDt float64, maxSubsteps int) {
	if fixedDt <= 0 || maxSubsteps <= 0 {
		return
	}
	steps := int(dt / fixedDt)
	if steps > maxSubsteps {
		steps = maxSubsteps
	}
	for i := 0; i < steps; i++ {
		w.substep(fixedDt)
	}
}

func (w *World) substep(h float64) {
	for _, b := range w.bodies {
		if b.kinematic || b.invMass == 0 {
			continue
		}
		b.linVel.X += w.gravity.X * h
		b.linVel.Y += w.gravity.Y * h
		b.linVel.Z += w.gravity.Z * h

		damp := math.Max(0, 1-b.linDamping*h)
		b.linVel.Scale(b.linVel, damp)
		damp = math.Max(0, 1-b.angDamping*h)
		b.angVel.Scale(b.angVel, damp)
	}

	iterations := w.iterations
	if iterations < 1 {
		iterations = 1
	}
	for pass := 0; pass < iterations; pass++ {
		for _, j := range w.joints {
			j.solve(h)
		}
		resolveContacts(w)
	}

	for _, b := range w.bodies {
		if b.kinematic || b.invMass == 0 {
			continue
		}
		next := lin.NewT()
		next.Integrate(b.world, b.linVel, b.angVel, h)
		b.world.Set(next)
	}
}
