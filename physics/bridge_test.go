// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/sorairo/mmdrt/math/lin"
)

// fakeSkeleton is a minimal SkeletonView backed by a slice of world
// transforms, standing in for a real bone set.
type fakeSkeleton struct {
	worlds []*lin.T
}

func newFakeSkeleton(n int) *fakeSkeleton {
	fs := &fakeSkeleton{worlds: make([]*lin.T, n)}
	for i := range fs.worlds {
		fs.worlds[i] = lin.NewT()
	}
	return fs
}

func (fs *fakeSkeleton) BoneWorld(i int) *lin.T        { return fs.worlds[i] }
func (fs *fakeSkeleton) SetBoneWorld(i int, w *lin.T)  { fs.worlds[i] = lin.NewT().Set(w) }

func TestInvZIsItsOwnInverse(t *testing.T) {
	tr := lin.NewT().SetVQ(lin.NewV3().SetS(1, 2, 3), lin.NewQ().SetAa(0, 1, 0, 0.7))
	back := invZ(invZ(tr))
	if !back.Aeq(tr) {
		t.Errorf("invZ(invZ(t)) = %+v, want %+v", back, tr)
	}
}

func TestInvTProducesIdentityWhenComposed(t *testing.T) {
	tr := lin.NewT().SetVQ(lin.NewV3().SetS(4, -1, 2), lin.NewQ().SetAa(1, 0, 0, 0.4))
	id := lin.NewT().Mult(tr, invT(tr))
	want := lin.NewT()
	if !id.Aeq(want) {
		t.Errorf("t * inv(t) = %+v, want identity", id)
	}
}

func TestFollowBoneBodySyncsFromBoneEveryTick(t *testing.T) {
	sk := newFakeSkeleton(1) // bind pose is identity, matching the body's own bind (no Pos* set).

	defs := []RigidBodyDef{{BoneIndex: 0, Mode: FollowBone, Kind: KindSphere, Sx: 0.3, Mass: 0}}
	br := Build(sk, defs, nil, -9.8, DefaultTuning)
	defer br.Destroy()

	sk.worlds[0] = lin.NewT().SetLoc(5, 6, 7)
	br.SyncBodies(sk)

	got := br.bodies[0].body.Transform().Loc
	want := invZ(sk.worlds[0]).Loc
	if !got.Aeq(want) {
		t.Errorf("follow-bone body position = %+v, want %+v", got, want)
	}
}

func TestPhysicsModeBoneIsMarkedDynamic(t *testing.T) {
	sk := newFakeSkeleton(1)
	defs := []RigidBodyDef{{BoneIndex: 0, Mode: Physics, Kind: KindSphere, Sx: 0.3, Mass: 1}}
	br := Build(sk, defs, nil, -9.8, DefaultTuning)
	defer br.Destroy()

	if !br.DynamicBone(0) {
		t.Error("expected bone 0 to be reported dynamic for a Physics-mode body")
	}
}

func TestFollowBoneModeBoneIsNotDynamic(t *testing.T) {
	sk := newFakeSkeleton(1)
	defs := []RigidBodyDef{{BoneIndex: 0, Mode: FollowBone, Kind: KindSphere, Sx: 0.3, Mass: 0}}
	br := Build(sk, defs, nil, -9.8, DefaultTuning)
	defer br.Destroy()

	if br.DynamicBone(0) {
		t.Error("expected bone 0 to not be reported dynamic for a FollowBone-mode body")
	}
}

func TestSyncBonesWritesBackPhysicsBodyTransform(t *testing.T) {
	sk := newFakeSkeleton(1)
	sk.worlds[0] = lin.NewT().SetLoc(0, 5, 0)

	defs := []RigidBodyDef{{BoneIndex: 0, Mode: Physics, Kind: KindSphere, Sx: 0.3, Mass: 1}}
	br := Build(sk, defs, nil, -10, DefaultTuning)
	defer br.Destroy()

	br.Step(1.0, 1.0/60.0, 60)
	br.SyncBones(sk)

	if sk.worlds[0].Loc.Y >= 5 {
		t.Errorf("expected bone Y to drop after physics step and sync-back, got %v", sk.worlds[0].Loc.Y)
	}
}

func TestBuildSkipsJointsWithOutOfRangeBodyIndices(t *testing.T) {
	sk := newFakeSkeleton(2)
	defs := []RigidBodyDef{
		{BoneIndex: 0, Mode: Physics, Kind: KindSphere, Sx: 0.3, Mass: 1},
		{BoneIndex: 1, Mode: Physics, Kind: KindSphere, Sx: 0.3, Mass: 1},
	}
	joints := []JointDef{{BodyA: 0, BodyB: 5}}
	br := Build(sk, defs, joints, -9.8, DefaultTuning)
	defer br.Destroy()

	if len(br.World.joints) != 0 {
		t.Errorf("expected out-of-range joint to be skipped, got %d joints", len(br.World.joints))
	}
}

func TestTuningMassScaleChangesInverseMass(t *testing.T) {
	sk := newFakeSkeleton(1)
	defs := []RigidBodyDef{{BoneIndex: -1, Mode: Physics, Kind: KindSphere, Sx: 0.3, Mass: 2}}

	unscaled := Build(sk, defs, nil, 0, DefaultTuning)
	scaled := Build(sk, defs, nil, 0, Tuning{SolverIterations: 1, SpringStiffnessScale: 1, LinearDampingScale: 1, AngularDampingScale: 1, MassScale: 4})
	defer unscaled.Destroy()
	defer scaled.Destroy()

	gotUnscaled := unscaled.bodies[0].body.invMass
	gotScaled := scaled.bodies[0].body.invMass
	// mass scale 4 quadruples mass, so inverse mass drops to a quarter.
	diff := gotUnscaled - gotScaled*4
	if diff < -1e-9 || diff > 1e-9 {
		t.Errorf("invMass unscaled=%v scaled=%v, want scaled*4 == unscaled", gotUnscaled, gotScaled)
	}
}

func TestTuningSolverIterationsCompoundsJointCorrection(t *testing.T) {
	sk := newFakeSkeleton(1)
	defs := []RigidBodyDef{
		{BoneIndex: -1, Mode: Physics, Kind: KindSphere, Sx: 0.3, Mass: 1},
		{BoneIndex: -1, Mode: Physics, Kind: KindSphere, Sx: 0.3, Mass: 1, PosX: 2},
	}
	// LinearDamping at 1 means undamped (the bundled solver's convention), so
	// this isolates the iteration-count effect from the new velocity-damping
	// term the spring now also applies.
	joints := []JointDef{{BodyA: 0, BodyB: 1, LinearStiffness: lin.V3{X: 50}, LinearDamping: lin.V3{X: 1}}}

	one := Build(sk, defs, joints, 0, Tuning{SolverIterations: 1, SpringStiffnessScale: 1, LinearDampingScale: 1, AngularDampingScale: 1, MassScale: 1})
	many := Build(sk, defs, joints, 0, Tuning{SolverIterations: 8, SpringStiffnessScale: 1, LinearDampingScale: 1, AngularDampingScale: 1, MassScale: 1})
	defer one.Destroy()
	defer many.Destroy()

	// Joint frames are captured where the bodies sit at build time, so move
	// body 1 afterwards to give the spring a displacement to correct.
	one.bodies[1].body.world.Loc.X = 3
	many.bodies[1].body.world.Loc.X = 3

	one.World.Step(1.0/60.0, 1.0/60.0, 1)
	many.World.Step(1.0/60.0, 1.0/60.0, 1)

	oneVel := one.bodies[0].body.linVel.X
	manyVel := many.bodies[0].body.linVel.X
	if manyVel <= oneVel*1.5 {
		t.Errorf("expected 8 solver iterations to produce a markedly larger velocity correction than 1, got one=%v many=%v", oneVel, manyVel)
	}
}
