// Copyright © 2024 Galvanized Logic Inc.

package mmdrt

import (
	"strings"
	"testing"

	"github.com/sorairo/mmdrt/bezier"
	"github.com/sorairo/mmdrt/math/lin"
	"github.com/sorairo/mmdrt/morph"
	"github.com/sorairo/mmdrt/motion"
	"github.com/sorairo/mmdrt/physics"
	"github.com/sorairo/mmdrt/skeleton"
)

func buildTestModel(t *testing.T) *Model {
	t.Helper()
	root := skeleton.NewBone("root", -1, lin.V3{})
	child := skeleton.NewBone("child", 0, lin.V3{X: 0, Y: 1, Z: 0})
	sk := skeleton.New([]*skeleton.Bone{root, child})

	morphs := morph.NewEngine(nil, nil, 0)
	cache := bezier.NewCache(32)

	bodies := []physics.RigidBodyDef{
		{BoneIndex: 0, Mode: physics.FollowBone, Kind: physics.KindSphere, Sx: 0.5, Mass: 0},
	}
	cfg := NewConfig()
	return NewModel(cfg, sk, morphs, bodies, nil, cache)
}

func TestTickRunsWithoutPanicAndUpdatesSkinning(t *testing.T) {
	m := buildTestModel(t)
	defer m.Destroy()

	for i := 0; i < 10; i++ {
		m.Tick(1.0 / 60.0)
	}

	if m.Diag.Ticks != 10 {
		t.Errorf("expected 10 ticks recorded, got %d", m.Diag.Ticks)
	}
	for _, b := range m.Bones.Bones {
		want := lin.NewV3().Set(b.LocalToWorld.Loc)
		got := b.Skinning.App(lin.NewV3().Set(&b.InitialPosition))
		if !got.Aeq(want) {
			t.Errorf("bone %q: skinning*bind != local_to_world translation", b.Name)
		}
	}
}

func TestPhysicsTeardownZeroesAllocCounters(t *testing.T) {
	root := skeleton.NewBone("root", -1, lin.V3{})
	sk := skeleton.New([]*skeleton.Bone{root})
	morphs := morph.NewEngine(nil, nil, 0)
	cache := bezier.NewCache(32)

	var bodies []physics.RigidBodyDef
	var joints []physics.JointDef
	for i := 0; i < 100; i++ {
		bodies = append(bodies, physics.RigidBodyDef{BoneIndex: -1, Mode: physics.Physics, Kind: physics.KindSphere, Sx: 0.3, Mass: 1})
	}
	for i := 0; i < 80; i++ {
		joints = append(joints, physics.JointDef{BodyA: i, BodyB: (i + 1) % 100})
	}

	cfg := NewConfig()
	m := NewModel(cfg, sk, morphs, bodies, joints, cache)
	for i := 0; i < 10; i++ {
		m.Tick(1.0 / 60.0)
	}
	m.Destroy()

	worlds, shapes, rigidBodies, constraints, motionStates := physics.AllocCounts()
	if worlds != 0 || shapes != 0 || rigidBodies != 0 || constraints != 0 || motionStates != 0 {
		t.Errorf("expected all alloc counters zero after teardown, got worlds=%d shapes=%d bodies=%d constraints=%d motionStates=%d",
			worlds, shapes, rigidBodies, constraints, motionStates)
	}
}

const samplePose = `Vocaloid Pose Data file

pose_test;
1;

Bone0{child
  0.000000,1.000000,-2.000000;
  0.000000,0.000000,0.000000,1.000000;
}

Morph0{smile
  0.600000;
}
`

func TestApplyPoseStampsNamedBonesAndMorphs(t *testing.T) {
	root := skeleton.NewBone("root", -1, lin.V3{})
	child := skeleton.NewBone("child", 0, lin.V3{X: 0, Y: 1, Z: 0})
	sk := skeleton.New([]*skeleton.Bone{root, child})

	morphs := morph.NewEngine([]morph.Morph{{Name: "smile", Kind: morph.KindVertex}}, nil, 0)
	cache := bezier.NewCache(32)
	cfg := NewConfig()
	m := NewModel(cfg, sk, morphs, nil, nil, cache)

	pose, err := motion.LoadPose(strings.NewReader(samplePose))
	if err != nil {
		t.Fatalf("LoadPose failed: %v", err)
	}
	m.ApplyPose(pose)

	got := m.Bones.AnimationTranslate(1)
	if got.X != 0 || got.Y != 1 || got.Z != 2 {
		t.Errorf("applied translation = %+v, want Z negated to 2.0", got)
	}
	if w := m.Morphs.Weight(0); w != 0.6 {
		t.Errorf("applied morph weight = %v, want 0.6", w)
	}
}

func TestApplyPoseCountsUnknownNamesAsOutOfRange(t *testing.T) {
	root := skeleton.NewBone("root", -1, lin.V3{})
	sk := skeleton.New([]*skeleton.Bone{root})
	morphs := morph.NewEngine(nil, nil, 0)
	cache := bezier.NewCache(32)
	cfg := NewConfig()
	m := NewModel(cfg, sk, morphs, nil, nil, cache)

	pose, err := motion.LoadPose(strings.NewReader(samplePose))
	if err != nil {
		t.Fatalf("LoadPose failed: %v", err)
	}
	m.ApplyPose(pose)

	if m.Diag.IndexOutOfRange != 2 {
		t.Errorf("expected 2 out-of-range skips (1 bone, 1 morph), got %d", m.Diag.IndexOutOfRange)
	}
}

