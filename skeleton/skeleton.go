package skeleton

import (
	"sort"

	"github.com/sorairo/mmdrt/math/lin"
	"github.com/tbogdala/groggy"
)

// Skeleton is the flat, never-reallocated bone array plus the
// topologically sorted update order derived from it at construction.
type Skeleton struct {
	Bones []*Bone
	order []int // indices into Bones, non-decreasing TransformLevel.

	// IKEnabledQuery, when set, answers whether the IK chain rooted at a
	// bone index is currently enabled (driven by the active animation's IK
	// track). nil means every IK-flagged bone always solves.
	IKEnabledQuery func(boneIndex int) bool

	// IndexOutOfRange counts bone indices rejected by AddAnimationTranslate
	// or MultAnimationRotate since the skeleton was built, plus pose bone
	// names that Model.ApplyPose could not resolve.
	IndexOutOfRange int
	// DegenerateIK counts IK links skipped in solveLink because the
	// effector or target vector had near-zero length.
	DegenerateIK int
}

// New builds a Skeleton from bones already carrying Parent, IsRoot,
// InitialPosition, and any IK/Append config. It computes TransformLevel
// from parent depth, BodyShift, the bind-pose transforms, and the
// per-parent Children index.
func New(bones []*Bone) *Skeleton {
	sk := &Skeleton{Bones: bones}
	sk.assignLevels()
	sk.order = sortedByLevel(bones)
	sk.seedBindPose()
	sk.buildChildren()
	return sk
}

// assignLevels computes TransformLevel as each bone's depth in the parent
// chain, guaranteeing TransformLevel(child) > TransformLevel(parent).
func (sk *Skeleton) assignLevels() {
	for i, b := range sk.Bones {
		b.TransformLevel = depth(sk.Bones, i)
	}
}

func depth(bones []*Bone, i int) int {
	level := 0
	seen := map[int]bool{}
	for bones[i].Parent >= 0 {
		if seen[i] {
			break // malformed cycle in source data; stop rather than loop forever.
		}
		seen[i] = true
		i = bones[i].Parent
		level++
	}
	return level
}

func sortedByLevel(bones []*Bone) []int {
	order := make([]int, len(bones))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return bones[order[i]].TransformLevel < bones[order[j]].TransformLevel
	})
	return order
}

// seedBindPose computes BodyShift, LocalToParent, LocalToWorld and
// InverseInit for every bone from InitialPosition, in sorted order so a
// parent's InitialPosition is available before its children compute
// BodyShift relative to it.
func (sk *Skeleton) seedBindPose() {
	for _, i := range sk.order {
		b := sk.Bones[i]
		if b.Parent < 0 {
			b.BodyShift.Set(&b.InitialPosition)
		} else {
			b.BodyShift.Sub(&b.InitialPosition, &sk.Bones[b.Parent].InitialPosition)
		}
		b.LocalToParent.SetVQ(&b.BodyShift, lin.QI)
		if b.Parent < 0 {
			b.LocalToWorld.Set(&b.LocalToParent)
		} else {
			b.LocalToWorld.Mult(&sk.Bones[b.Parent].LocalToWorld, &b.LocalToParent)
		}
		b.InverseInit.Set(invert(&b.LocalToWorld))
	}
}

func (sk *Skeleton) buildChildren() {
	for i, b := range sk.Bones {
		if b.Parent >= 0 {
			sk.Bones[b.Parent].Children = append(sk.Bones[b.Parent].Children, i)
		}
	}
}

// invert returns t^-1 such that Mult(t, invert(t)) is the identity.
func invert(t *lin.T) *lin.T {
	invRot := lin.NewQ().Inv(t.Rot)
	invLoc := lin.NewV3().Neg(t.Loc)
	invLoc.MultvQ(invLoc, invRot)
	return lin.NewT().SetVQ(invLoc, invRot)
}

// MarkDynamic flags the bones in boneIndices as physics-owned: their
// LocalToWorld/LocalToParent are written by SetBoneWorld rather than
// recomputed from animation inputs during UpdateTransforms.
func (sk *Skeleton) MarkDynamic(boneIndices map[int]bool) {
	for i, owned := range boneIndices {
		if i < 0 || i >= len(sk.Bones) || !owned {
			continue
		}
		sk.Bones[i].dynamicallyOwned = true
	}
}

// BoneWorld satisfies physics.SkeletonView: the current world transform of
// bone i.
func (sk *Skeleton) BoneWorld(i int) *lin.T {
	if i < 0 || i >= len(sk.Bones) {
		return lin.NewT()
	}
	return &sk.Bones[i].LocalToWorld
}

// SetBoneWorld satisfies physics.SkeletonView: overwrite bone i's world
// transform (a physics write-back) and rederive LocalToParent,
// AnimationRotate and AnimationTranslate so later animation passes stay
// consistent, per the external-write rule. Append/IK rotation inputs on a
// physics-owned bone are assumed negligible and reset to identity.
func (sk *Skeleton) SetBoneWorld(i int, world *lin.T) {
	if i < 0 || i >= len(sk.Bones) {
		return
	}
	b := sk.Bones[i]
	b.LocalToWorld.Set(world)

	var parentWorld *lin.T
	if b.Parent < 0 {
		parentWorld = lin.NewT()
	} else {
		parentWorld = &sk.Bones[b.Parent].LocalToWorld
	}
	b.LocalToParent.Mult(invert(parentWorld), world)
	b.AnimationRotate.Set(b.LocalToParent.Rot)
	b.AppendRotate.Set(lin.QI)
	b.IKRotate.Set(lin.QI)
	b.AnimationTranslate.Sub(b.LocalToParent.Loc, &b.BodyShift)
	b.AppendTranslate.SetS(0, 0, 0)
}

// BeginUpdate resets every bone's per-tick animation/append/IK inputs,
// called once at the start of a tick before any layer or morph writes.
func (sk *Skeleton) BeginUpdate() {
	for _, b := range sk.Bones {
		b.AnimationTranslate.SetS(0, 0, 0)
		b.AnimationRotate.Set(lin.QI)
		b.AppendTranslate.SetS(0, 0, 0)
		b.AppendRotate.Set(lin.QI)
		b.IKRotate.Set(lin.QI)
	}
}

// BoneCount, AddAnimationTranslate, MultAnimationRotate, SetAnimationTranslate,
// SetAnimationRotate, AnimationTranslate, AnimationRotate implement
// motion.BoneSink so animation layers can write directly into the skeleton.
func (sk *Skeleton) BoneCount() int { return len(sk.Bones) }

func (sk *Skeleton) AddAnimationTranslate(i int, delta *lin.V3) {
	if i < 0 || i >= len(sk.Bones) {
		groggy.Logsf("DEBUG", "AddAnimationTranslate: bone index %d out of range (%d bones)", i, len(sk.Bones))
		sk.IndexOutOfRange++
		return
	}
	b := &sk.Bones[i].AnimationTranslate
	b.X, b.Y, b.Z = b.X+delta.X, b.Y+delta.Y, b.Z+delta.Z
}

func (sk *Skeleton) MultAnimationRotate(i int, delta *lin.Q) {
	if i < 0 || i >= len(sk.Bones) {
		groggy.Logsf("DEBUG", "MultAnimationRotate: bone index %d out of range (%d bones)", i, len(sk.Bones))
		sk.IndexOutOfRange++
		return
	}
	b := sk.Bones[i]
	b.AnimationRotate.Mult(&b.AnimationRotate, delta)
}

func (sk *Skeleton) SetAnimationTranslate(i int, t lin.V3) {
	if i < 0 || i >= len(sk.Bones) {
		return
	}
	sk.Bones[i].AnimationTranslate = t
}

func (sk *Skeleton) SetAnimationRotate(i int, r lin.Q) {
	if i < 0 || i >= len(sk.Bones) {
		return
	}
	sk.Bones[i].AnimationRotate = r
}

func (sk *Skeleton) AnimationTranslate(i int) lin.V3 {
	if i < 0 || i >= len(sk.Bones) {
		return lin.V3{}
	}
	return sk.Bones[i].AnimationTranslate
}

func (sk *Skeleton) AnimationRotate(i int) lin.Q {
	if i < 0 || i >= len(sk.Bones) {
		return *lin.QI
	}
	return sk.Bones[i].AnimationRotate
}
