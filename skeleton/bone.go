// Package skeleton implements the topologically ordered bone hierarchy
// that the animation, morph and physics stages write into and the
// renderer reads skinning matrices out of.
package skeleton

import "github.com/sorairo/mmdrt/math/lin"

// AppendConfig describes a bone's append (inherit) coupling to another
// bone: it copies a fraction of the source's rotation and/or translation.
type AppendConfig struct {
	Source int // bone index.
	Rate   float64
	Local  bool // true: read source's own animation_* instead of its append_*.
}

// LinkLimit is a per-link Euler clamp applied during CCD IK, with an
// axis-lock flag per axis (locked axes are pinned to 0 rather than
// clamped to a range).
type LinkLimit struct {
	Enabled            bool
	LockX, LockY, LockZ bool
	MinX, MaxX          float64
	MinY, MaxY          float64
	MinZ, MaxZ          float64
}

// IKConfig describes one bone's CCD IK solve: its effector and target, the
// ordered chain of links (innermost first), iteration/tolerance knobs, and
// optional per-link clamps (index-aligned with Chain).
type IKConfig struct {
	Effector      int
	Target        int
	Chain         []int
	Iterations    int
	SubIterations int
	UnitAngle     float64
	Tolerance     float64
	Limits        []LinkLimit // len(Limits) == len(Chain), or nil for no clamps.
}

// Bone is one node of the skeleton: bind-pose geometry, current transform
// state, animation/append/IK inputs, and the flags that control how those
// inputs combine during a transform update.
type Bone struct {
	Name   string
	Parent int // -1 for a root.

	InitialPosition lin.V3 // bind-pose world translation.
	BodyShift       lin.V3 // offset from parent in bind pose.

	LocalToParent lin.T
	LocalToWorld  lin.T
	InverseInit   lin.T
	Skinning      lin.T

	AnimationTranslate lin.V3
	AnimationRotate    lin.Q
	AppendTranslate    lin.V3
	AppendRotate       lin.Q
	IKRotate           lin.Q

	IsRoot             bool
	IsIK               bool
	IsAppendRotate     bool
	IsAppendTranslate  bool
	IsAppendLocal      bool
	DeformAfterPhysics bool

	Append *AppendConfig
	IK     *IKConfig

	TransformLevel int
	Children       []int

	// dynamicallyOwned marks a bone whose local_to_world/local_to_parent are
	// written by the physics bridge rather than computed from animation
	// inputs. Set once when the bridge is wired up, not per tick.
	dynamicallyOwned bool
}

// NewBone returns a bone seeded with identity transforms and no parent.
// T's Loc/Rot are pointers with no useful zero value, so every T-typed
// field is seeded from lin.NewT() rather than left at its Go zero value.
func NewBone(name string, parent int, initialPosition lin.V3) *Bone {
	b := &Bone{Name: name, Parent: parent, InitialPosition: initialPosition, IsRoot: parent < 0}
	b.LocalToParent = *lin.NewT()
	b.LocalToWorld = *lin.NewT()
	b.InverseInit = *lin.NewT()
	b.Skinning = *lin.NewT()
	b.AnimationRotate = *lin.QI
	b.AppendRotate = *lin.QI
	b.IKRotate = *lin.QI
	return b
}
