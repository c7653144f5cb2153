package skeleton

import (
	"math"
	"testing"

	"github.com/sorairo/mmdrt/math/lin"
)

func buildChain() *Skeleton {
	root := NewBone("root", -1, lin.V3{X: 0, Y: 0, Z: 0})
	mid := NewBone("mid", 0, lin.V3{X: 0, Y: 1, Z: 0})
	tip := NewBone("tip", 1, lin.V3{X: 0, Y: 2, Z: 0})
	return New([]*Bone{root, mid, tip})
}

func TestParentChildWorldConsistency(t *testing.T) {
	sk := buildChain()
	sk.BeginUpdate()
	sk.Bones[1].AnimationTranslate = lin.V3{X: 0.5, Y: 0, Z: 0}
	sk.UpdateTransforms(false)
	sk.UpdateTransforms(true)

	for i, b := range sk.Bones {
		if b.Parent < 0 {
			continue
		}
		parent := sk.Bones[b.Parent]
		want := lin.NewT().Mult(&parent.LocalToWorld, &b.LocalToParent)
		if !b.LocalToWorld.Aeq(want) {
			t.Errorf("bone %d: local_to_world != parent.local_to_world * local_to_parent", i)
		}
	}
}

func TestSkinningMatrixMapsBindPositionToWorld(t *testing.T) {
	sk := buildChain()
	sk.BeginUpdate()
	sk.UpdateTransforms(false)
	sk.UpdateTransforms(true)
	sk.EndUpdate()

	for i, b := range sk.Bones {
		bind := b.InitialPosition
		got := b.Skinning.App(lin.NewV3().Set(&bind))
		want := lin.NewV3().Set(b.LocalToWorld.Loc)
		if !got.Aeq(want) {
			t.Errorf("bone %d: skinning*bind = %+v, want local_to_world translation %+v", i, got, want)
		}
	}
}

func TestTransformLevelStrictlyIncreasesWithDepth(t *testing.T) {
	sk := buildChain()
	for _, b := range sk.Bones {
		if b.Parent < 0 {
			continue
		}
		if b.TransformLevel <= sk.Bones[b.Parent].TransformLevel {
			t.Errorf("bone %q: TransformLevel %d must exceed parent's %d", b.Name, b.TransformLevel, sk.Bones[b.Parent].TransformLevel)
		}
	}
}

func TestPhysicsWriteBackRederivesAnimationInputs(t *testing.T) {
	sk := buildChain()
	sk.BeginUpdate()
	sk.UpdateTransforms(false)

	newWorld := lin.NewT().SetVQ(lin.NewV3S(0, 5, 0), lin.NewQI())
	sk.SetBoneWorld(1, newWorld)

	mid := sk.Bones[1]
	if !mid.LocalToWorld.Aeq(newWorld) {
		t.Fatalf("expected SetBoneWorld to overwrite local_to_world")
	}
	wantTranslate := lin.NewV3().Sub(mid.LocalToParent.Loc, &mid.BodyShift)
	if !mid.AnimationTranslate.Aeq(wantTranslate) {
		t.Errorf("expected animation_translate rederived as local_to_parent.loc - body_shift, got %+v want %+v", mid.AnimationTranslate, wantTranslate)
	}
}

func TestIKSolverConvergesOnSingleLinkChain(t *testing.T) {
	root := NewBone("root", -1, lin.V3{X: 0, Y: 0, Z: 0})
	effector := NewBone("effector", 0, lin.V3{X: 0, Y: 1, Z: 0})
	root.IsIK = true
	root.IK = &IKConfig{
		Effector:   1,
		Target:     2,
		Chain:      []int{0},
		Iterations: 8,
		UnitAngle:  math.Pi / 4,
		Tolerance:  1e-3,
	}
	target := NewBone("target", -1, lin.V3{X: 1, Y: 0, Z: 0})

	sk := New([]*Bone{root, effector, target})
	sk.BeginUpdate()
	sk.UpdateTransforms(false)

	dist := sk.Bones[1].LocalToWorld.Loc.Dist(sk.Bones[2].LocalToWorld.Loc)
	if dist > 1e-2 {
		t.Errorf("expected IK effector within tolerance of target after solve, distance = %v", dist)
	}
}

func TestIKSkippedWhenDisabled(t *testing.T) {
	root := NewBone("root", -1, lin.V3{X: 0, Y: 0, Z: 0})
	effector := NewBone("effector", 0, lin.V3{X: 0, Y: 1, Z: 0})
	root.IsIK = true
	root.IK = &IKConfig{Effector: 1, Target: 2, Chain: []int{0}, Iterations: 8, UnitAngle: math.Pi / 4, Tolerance: 1e-3}
	target := NewBone("target", -1, lin.V3{X: 1, Y: 0, Z: 0})

	sk := New([]*Bone{root, effector, target})
	sk.IKEnabledQuery = func(int) bool { return false }
	sk.BeginUpdate()
	sk.UpdateTransforms(false)

	dist := sk.Bones[1].LocalToWorld.Loc.Dist(sk.Bones[2].LocalToWorld.Loc)
	if dist < 0.9 {
		t.Errorf("expected IK to be skipped, effector should not have moved toward target")
	}
}

func TestAppendTranslateCopiesFractionOfSource(t *testing.T) {
	root := NewBone("root", -1, lin.V3{X: 0, Y: 0, Z: 0})
	follower := NewBone("follower", 0, lin.V3{X: 0, Y: 1, Z: 0})
	follower.IsAppendTranslate = true
	follower.Append = &AppendConfig{Source: 0, Rate: 0.5, Local: true}

	sk := New([]*Bone{root, follower})
	sk.BeginUpdate()
	sk.Bones[0].AnimationTranslate = lin.V3{X: 2, Y: 0, Z: 0}
	sk.UpdateTransforms(false)

	got := sk.Bones[1].AppendTranslate
	if math.Abs(got.X-1) > 1e-9 {
		t.Errorf("expected append_translate.X = source * rate = 1, got %v", got.X)
	}
}
