// Copyright © 2024 Galvanized Logic Inc.

package mmdrt

import (
	"github.com/sorairo/mmdrt/bezier"
	"github.com/sorairo/mmdrt/math/lin"
	"github.com/sorairo/mmdrt/morph"
	"github.com/sorairo/mmdrt/motion"
	"github.com/sorairo/mmdrt/physics"
	"github.com/sorairo/mmdrt/skeleton"
	"github.com/tbogdala/groggy"
)

// Model owns one loaded character's full per-tick pipeline: animation
// layers, morph engine, bone set, and physics bridge, wired together and
// driven in the fixed order the four subsystems must agree on.
type Model struct {
	Config Config
	Diag   Diagnostics

	Layers  *motion.Manager
	Morphs  *morph.Engine
	Bones   *skeleton.Skeleton
	Physics *physics.Bridge

	boneTargets []morph.BoneTarget
}

// NewModel wires a Model from already-constructed subsystems: a skeleton
// built from parsed bone data, a morph engine built from parsed morph
// data, rigid body/joint definitions for the physics bridge, and a
// curve cache shared by the animation layers.
func NewModel(cfg Config, sk *skeleton.Skeleton, morphs *morph.Engine, rigidBodies []physics.RigidBodyDef, joints []physics.JointDef, cache *bezier.Cache) *Model {
	m := &Model{
		Config: cfg,
		Layers: motion.NewManager(cache),
		Morphs: morphs,
		Bones:  sk,
	}
	m.Bones.IKEnabledQuery = m.Layers.ActiveIKEnabledAt

	m.boneTargets = make([]morph.BoneTarget, len(sk.Bones))
	for i := range sk.Bones {
		m.boneTargets[i] = &skeletonBoneTarget{sk: sk, index: i}
	}

	if len(rigidBodies) > 0 {
		if !cfg.JointsEnabled {
			joints = nil
		}
		tuning := physics.Tuning{
			SolverIterations:     cfg.SolverIterations,
			SpringStiffnessScale: cfg.SpringStiffnessScale,
			LinearDampingScale:   cfg.LinearDampingScale,
			AngularDampingScale:  cfg.AngularDampingScale,
			MassScale:            cfg.MassScale,
		}
		m.Physics = physics.Build(sk, rigidBodies, joints, cfg.GravityY, tuning)
		dynamic := map[int]bool{}
		for _, d := range rigidBodies {
			if d.Mode != physics.FollowBone && d.BoneIndex >= 0 {
				dynamic[d.BoneIndex] = true
			}
		}
		sk.MarkDynamic(dynamic)
	}
	return m
}

// skeletonBoneTarget adapts one bone of a Skeleton to morph.BoneTarget, so
// the morph engine can write bone-morph offsets without depending on the
// skeleton package directly.
type skeletonBoneTarget struct {
	sk    *skeleton.Skeleton
	index int
}

func (t *skeletonBoneTarget) AddAnimationTranslate(delta *lin.V3) {
	t.sk.AddAnimationTranslate(t.index, delta)
}
func (t *skeletonBoneTarget) MultAnimationRotate(delta *lin.Q) {
	t.sk.MultAnimationRotate(t.index, delta)
}

// Tick advances the model by dt seconds, running the seven-step pipeline:
// layer/morph update, pre-physics transforms, physics sync/step/sync-back,
// post-physics transforms, and skinning matrix recomputation.
func (m *Model) Tick(dt float64) {
	m.Diag.Ticks++

	m.Layers.Update(dt)
	m.Bones.BeginUpdate()
	m.Layers.Evaluate(m.Bones, m.Morphs)

	m.Morphs.Apply(m.boneTargets)

	m.Bones.UpdateTransforms(false)

	if m.Physics != nil {
		fixedDt := 1.0 / m.Config.PhysicsFPS
		m.Physics.SyncBodies(m.Bones)
		m.Physics.Step(dt, fixedDt, m.Config.MaxSubsteps)
		m.Physics.SyncBones(m.Bones)
		m.Bones.UpdateNonPhysicsChildren()
	}

	m.Bones.UpdateTransforms(true)
	m.Bones.EndUpdate()

	m.refreshDiag()

	if m.Config.DebugLog {
		groggy.Logsf("DEBUG", "tick %d: oob=%d degenerate_ik=%d morph_cycle=%d alloc_skipped=%d",
			m.Diag.Ticks, m.Diag.IndexOutOfRange, m.Diag.DegenerateIK, m.Diag.MorphCycleDepth, m.Diag.AllocSkipped)
	}
}

// refreshDiag mirrors the skeleton/morph/physics subsystems' own cumulative
// anomaly counters into Diag. Called at the end of every Tick and of
// ApplyPose, so a caller inspecting Diag right after either sees the
// current counts without waiting for the next tick.
func (m *Model) refreshDiag() {
	m.Diag.IndexOutOfRange = m.Bones.IndexOutOfRange + m.Morphs.IndexOutOfRange
	m.Diag.DegenerateIK = m.Bones.DegenerateIK
	m.Diag.MorphCycleDepth = m.Morphs.CycleTruncations
	if m.Physics != nil {
		m.Diag.AllocSkipped = m.Physics.AllocSkipped
	}
}

// ApplyPose stamps a loaded static pose directly onto this model's bones
// and morphs, bypassing the animation layers entirely. Bone and morph
// names absent from this model are resolved to -1 by Pose.BoneIndex/
// morph.Engine.MorphIndex and silently skipped, matching the pipeline's
// index-out-of-range error model.
func (m *Model) ApplyPose(pose *motion.Pose) {
	boneNames := make([]string, len(m.Bones.Bones))
	for i, b := range m.Bones.Bones {
		boneNames[i] = b.Name
	}
	for _, pb := range pose.Bones {
		i := pose.BoneIndex(boneNames, pb.Name)
		if i < 0 {
			m.Bones.IndexOutOfRange++
			continue
		}
		m.Bones.SetAnimationTranslate(i, pb.Translation)
		m.Bones.SetAnimationRotate(i, pb.Rotation)
	}
	for _, pm := range pose.Morphs {
		i := m.Morphs.MorphIndex(pm.Name)
		if i < 0 {
			m.Morphs.IndexOutOfRange++
			continue
		}
		m.Morphs.SetWeight(i, pm.Weight)
	}
	m.refreshDiag()
}

// Destroy releases the model's physics world, if any. Safe to call even
// when the model has no physics bodies.
func (m *Model) Destroy() {
	if m.Physics != nil {
		m.Physics.Destroy()
	}
}
