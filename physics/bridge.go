// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"github.com/sorairo/mmdrt/math/lin"
	"github.com/tbogdala/groggy"
)

// SkeletonView is the minimal surface the bridge needs from a bone set: the
// current world transform of a bone, and the ability to overwrite it after
// a physics step. Accepting this instead of a concrete bone-set type keeps
// the solver and bridge free of any dependency on skeleton layout.
type SkeletonView interface {
	BoneWorld(boneIndex int) *lin.T
	SetBoneWorld(boneIndex int, world *lin.T)
}

// Mode is the physics-driving mode of a rigid body, derived from the MMD
// rigid body's declared mode (Static, Dynamic, DynamicWithBonePosition).
type Mode int

const (
	// FollowBone bodies are kinematic: the bridge writes their transform
	// from the bone every tick and the solver never moves them.
	FollowBone Mode = iota
	// Physics bodies are fully dynamic; the bridge writes their transform
	// back onto the bone every tick.
	Physics
	// PhysicsWithBone bodies are dynamic in rotation but keep following the
	// bone's translation, for accessories that swing but never detach.
	PhysicsWithBone
)

// ShapeKind selects which primitive a RigidBodyDef builds.
type ShapeKind int

const (
	KindSphere ShapeKind = iota
	KindBox
	KindCapsule
)

// RigidBodyDef describes one PMX rigid body as authored: raw position and
// YXZ-Euler rotation in right-handed skeleton space, shape parameters, and
// the physical properties the solver contract requires at body creation.
type RigidBodyDef struct {
	BoneIndex int // -1 if unattached.
	Mode      Mode

	Kind                   ShapeKind
	Sx, Sy, Sz             float64 // box half-extents / sphere radius (Sx) / capsule radius,half-length (Sx,Sy).
	Mass                   float64
	LinearDamping          float64
	AngularDamping         float64
	Friction               float64
	Restitution            float64
	Group                  int
	Mask                   int
	PosX, PosY, PosZ       float64 // bind-time world position, right-handed.
	RotX, RotY, RotZ       float64 // bind-time world rotation, YXZ-Euler, right-handed.
}

// JointDef describes one PMX joint (6-DOF spring) binding two rigid bodies.
type JointDef struct {
	BodyA, BodyB int // indices into the RigidBodyDef slice passed to Build.

	PosX, PosY, PosZ float64
	RotX, RotY, RotZ float64 // YXZ-Euler, right-handed.

	LinearLower, LinearUpper   lin.V3
	AngularLower, AngularUpper lin.V3 // XYZ-Euler limits, radians.

	LinearStiffness, AngularStiffness lin.V3
	LinearDamping, AngularDamping     lin.V3
}

// rigidBody pairs a solver Body with the bookkeeping the bridge's per-tick
// sync needs: its mode, the bone it is attached to (if any), and the fixed
// offset between the bone's bind pose and the body's bind pose, both
// expressed in the left-handed physics frame.
type rigidBody struct {
	body       *Body
	mode       Mode
	boneIndex  int
	offset     *lin.T // bodyOffset = inv_z(boneWorldBind)^-1 * rbWorldBind
	offsetInv  *lin.T
	attached   bool
}

// Bridge owns the physics world and the rigid-body/joint bookkeeping built
// from a model's PMX data, and performs the per-tick kinematic sync,
// stepping, and write-back described for the physics bridge component.
type Bridge struct {
	World      *World
	bodies     []*rigidBody
	dynamicSet map[int]bool // bone indices owned by non-FollowBone bodies.
	jointsOK   bool

	// AllocSkipped counts rigid bodies and joints Build omitted because the
	// solver failed to allocate them or their definition referenced an
	// out-of-range body index.
	AllocSkipped int
}

// invZ reflects transform t through Z = diag(1,1,-1,1): inv_z(M) = Z*M*Z.
// inv_z is its own inverse (Z*Z = I), so calling it twice returns the
// original transform exactly.
func invZ(t *lin.T) *lin.T {
	r := lin.NewM3().SetQ(t.Rot)
	r.Xz, r.Yz = -r.Xz, -r.Yz
	r.Zx, r.Zy = -r.Zx, -r.Zy
	out := lin.NewT()
	out.Rot.SetM(r)
	out.Loc.SetS(t.Loc.X, t.Loc.Y, -t.Loc.Z)
	return out
}

// invT returns the inverse of transform t (t^-1), such that
// t.Mult(t, invT(t)) is the identity transform.
func invT(t *lin.T) *lin.T {
	invRot := lin.NewQ().Inv(t.Rot)
	invLoc := lin.NewV3()
	invLoc.MultvQ(lin.NewV3().Neg(t.Loc), invRot)
	return lin.NewT().SetVQ(invLoc, invRot)
}

// Tuning carries the host-configurable scale factors and solver iteration
// count that Build applies on top of authored per-body/per-joint values, so
// a model imported at an unexpected scale can be retuned without
// re-authoring its rigid bodies and joints.
type Tuning struct {
	SolverIterations     int
	SpringStiffnessScale float64
	LinearDampingScale   float64
	AngularDampingScale  float64
	MassScale            float64
}

// DefaultTuning leaves every authored value unscaled and runs one solver
// iteration per substep.
var DefaultTuning = Tuning{SolverIterations: 1, SpringStiffnessScale: 1, LinearDampingScale: 1, AngularDampingScale: 1, MassScale: 1}

// Build constructs the physics world, rigid bodies and joints for one
// model. gravityY is applied along the world's (left-handed) Y axis.
// Bodies or joints the solver fails to allocate are skipped; construction
// never aborts (the bridge's failure model: "omitted, continue").
func Build(view SkeletonView, defs []RigidBodyDef, joints []JointDef, gravityY float64, tuning Tuning) *Bridge {
	w := NewWorld(gravityY)
	w.SetIterations(tuning.SolverIterations)
	br := &Bridge{World: w, dynamicSet: map[int]bool{}}

	bodies := make([]*rigidBody, len(defs))
	for i, d := range defs {
		rb := buildBody(w, view, d, tuning)
		if rb == nil {
			groggy.Logsf("ERROR", "physics: rigid body %d failed to build, omitted", i)
			br.AllocSkipped++
			continue // allocation failure: omitted, continue.
		}
		bodies[i] = rb
		br.bodies = append(br.bodies, rb)
		if d.Mode != FollowBone && d.BoneIndex >= 0 {
			br.dynamicSet[d.BoneIndex] = true
		}
	}

	for _, jd := range joints {
		if jd.BodyA < 0 || jd.BodyA >= len(bodies) || jd.BodyB < 0 || jd.BodyB >= len(bodies) {
			br.AllocSkipped++
			continue
		}
		a, b := bodies[jd.BodyA], bodies[jd.BodyB]
		if a == nil || b == nil {
			br.AllocSkipped++
			continue
		}
		buildJoint(w, a, b, jd, tuning)
	}
	return br
}

func buildBody(w *World, view SkeletonView, d RigidBodyDef, tuning Tuning) *rigidBody {
	var shape Shape
	switch d.Kind {
	case KindSphere:
		shape = w.CreateSphere(d.Sx)
	case KindBox:
		shape = w.CreateBox(d.Sx, d.Sy, d.Sz)
	case KindCapsule:
		shape = w.CreateCapsule(d.Sx, d.Sy)
	default:
		return nil
	}
	if shape == nil {
		return nil
	}

	rot := lin.NewQ().SetEulerYXZ(d.RotX, d.RotY, d.RotZ)
	rbWorld := lin.NewT().SetVQ(lin.NewV3().SetS(d.PosX, d.PosY, d.PosZ), rot)

	noContact := d.Sx <= 0 || (d.Kind == KindBox && (d.Sy <= 0 || d.Sz <= 0)) || (d.Kind == KindCapsule && d.Sy <= 0)
	kinematic := d.Mode == FollowBone

	mass := d.Mass * tuning.MassScale
	linDamping := d.LinearDamping * tuning.LinearDampingScale
	angDamping := d.AngularDamping * tuning.AngularDampingScale

	body := w.CreateBody(mass, linDamping, angDamping, d.Friction, d.Restitution,
		kinematic, true, noContact, shape, rbWorld)
	if body == nil {
		return nil
	}
	w.AddBody(body, d.Group, d.Mask)

	rb := &rigidBody{body: body, mode: d.Mode, boneIndex: d.BoneIndex}
	if d.BoneIndex >= 0 {
		boneBindLeft := invZ(view.BoneWorld(d.BoneIndex))
		rb.offset = lin.NewT().Mult(invT(boneBindLeft), rbWorld)
		rb.offsetInv = invT(rb.offset)
		rb.attached = true
	}
	return rb
}

func buildJoint(w *World, a, b *rigidBody, jd JointDef, tuning Tuning) {
	rot := lin.NewQ().SetEulerXYZ(jd.RotX, jd.RotY, jd.RotZ)
	jointWorld := lin.NewT().SetVQ(lin.NewV3().SetS(jd.PosX, jd.PosY, jd.PosZ), rot)

	frameA := lin.NewT().Mult(invT(a.body.Transform()), jointWorld)
	frameB := lin.NewT().Mult(invT(b.body.Transform()), jointWorld)

	j := NewJoint(a.body, b.body, frameA, frameB)
	linLower := [3]float64{jd.LinearLower.X, jd.LinearLower.Y, jd.LinearLower.Z}
	linUpper := [3]float64{jd.LinearUpper.X, jd.LinearUpper.Y, jd.LinearUpper.Z}
	angLower := [3]float64{jd.AngularLower.X, jd.AngularLower.Y, jd.AngularLower.Z}
	angUpper := [3]float64{jd.AngularUpper.X, jd.AngularUpper.Y, jd.AngularUpper.Z}
	linK := [3]float64{
		jd.LinearStiffness.X * tuning.SpringStiffnessScale,
		jd.LinearStiffness.Y * tuning.SpringStiffnessScale,
		jd.LinearStiffness.Z * tuning.SpringStiffnessScale,
	}
	linD := [3]float64{
		jd.LinearDamping.X * tuning.LinearDampingScale,
		jd.LinearDamping.Y * tuning.LinearDampingScale,
		jd.LinearDamping.Z * tuning.LinearDampingScale,
	}
	angK := [3]float64{
		jd.AngularStiffness.X * tuning.SpringStiffnessScale,
		jd.AngularStiffness.Y * tuning.SpringStiffnessScale,
		jd.AngularStiffness.Z * tuning.SpringStiffnessScale,
	}
	angD := [3]float64{
		jd.AngularDamping.X * tuning.AngularDampingScale,
		jd.AngularDamping.Y * tuning.AngularDampingScale,
		jd.AngularDamping.Z * tuning.AngularDampingScale,
	}

	for i := 0; i < 3; i++ {
		j.SetLimit(Axis(i), linLower[i], linUpper[i])
		j.SetLimit(AxisRX+Axis(i), angLower[i], angUpper[i])
		j.SetSpring(Axis(i), linK[i] != 0, linK[i], linD[i])
		j.SetSpring(AxisRX+Axis(i), true, angK[i], angD[i])
	}
	w.AddJoint(j)
}

// SyncBodies copies every FollowBone body's transform from its bone's
// current world pose, converted into the solver's left-handed frame.
func (br *Bridge) SyncBodies(view SkeletonView) {
	for _, rb := range br.bodies {
		if rb.mode != FollowBone || !rb.attached {
			continue
		}
		boneLeft := invZ(view.BoneWorld(rb.boneIndex))
		bodyWorld := lin.NewT().Mult(boneLeft, rb.offset)
		rb.body.SetTransform(bodyWorld)
	}
}

// Step advances the physics world by dt using the configured fixed timestep
// and substep cap.
func (br *Bridge) Step(dt, fixedDt float64, maxSubsteps int) {
	br.World.Step(dt, fixedDt, maxSubsteps)
}

// SyncBones writes every non-FollowBone body's resulting transform back
// onto its owning bone, converted from the solver's left-handed frame.
func (br *Bridge) SyncBones(view SkeletonView) {
	for _, rb := range br.bodies {
		if rb.mode == FollowBone || !rb.attached {
			continue
		}
		rbLeft := rb.body.Transform()

		var boneLeft *lin.T
		switch rb.mode {
		case Physics:
			boneLeft = lin.NewT().Mult(rbLeft, rb.offsetInv)
		case PhysicsWithBone:
			rotOnly := lin.NewT().Mult(rbLeft, rb.offsetInv)
			currentLeft := invZ(view.BoneWorld(rb.boneIndex))
			boneLeft = lin.NewT().SetVQ(currentLeft.Loc, rotOnly.Rot)
		default:
			continue
		}
		view.SetBoneWorld(rb.boneIndex, invZ(boneLeft))
	}
}

// DynamicBone reports whether boneIndex is driven by a non-FollowBone body.
func (br *Bridge) DynamicBone(boneIndex int) bool { return br.dynamicSet[boneIndex] }

// Destroy tears down the world: joints, then bodies, then the world itself.
func (br *Bridge) Destroy() { br.World.Destroy() }
