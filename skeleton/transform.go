package skeleton

import "github.com/sorairo/mmdrt/math/lin"

// UpdateTransforms runs one pass of the pipeline: compose local_to_parent
// for animation-owned bones, propagate world transforms, apply append
// (inherit) coupling, solve IK, then settle with a final propagation.
// Bones whose DeformAfterPhysics flag does not match afterPhysics are
// skipped in steps 1, 3 and 4 (they still participate in propagation so
// their unaffected descendants stay current).
func (sk *Skeleton) UpdateTransforms(afterPhysics bool) {
	for _, i := range sk.order {
		b := sk.Bones[i]
		if b.DeformAfterPhysics != afterPhysics || b.dynamicallyOwned {
			continue
		}
		sk.composeLocalToParent(b)
	}
	sk.propagate()

	for _, i := range sk.order {
		b := sk.Bones[i]
		if b.DeformAfterPhysics != afterPhysics || b.Append == nil {
			continue
		}
		sk.applyAppend(b)
	}
	sk.propagate()

	for _, i := range sk.order {
		b := sk.Bones[i]
		if b.DeformAfterPhysics != afterPhysics || !b.IsIK || b.IK == nil {
			continue
		}
		if !sk.ikEnabledAt(i) {
			continue
		}
		sk.solveIK(b)
	}
	sk.propagate()

	sk.propagate() // final settle pass.
}

// UpdateNonPhysicsChildren re-propagates world transforms immediately
// after a physics write-back, so any pass run before the next full
// UpdateTransforms (e.g. a render between ticks) sees current descendant
// positions for bones hanging off a dynamic body.
func (sk *Skeleton) UpdateNonPhysicsChildren() { sk.propagate() }

// EndUpdate recomputes every bone's skinning matrix from its current
// world transform.
func (sk *Skeleton) EndUpdate() {
	for _, b := range sk.Bones {
		b.Skinning.Mult(&b.LocalToWorld, &b.InverseInit)
	}
}

// composeLocalToParent rebuilds local_to_parent from the bone's current
// animation/append/IK inputs: translate(body_shift + animation_translate +
// append_translate) * rotate(animation_rotate * append_rotate * ik_rotate).
func (sk *Skeleton) composeLocalToParent(b *Bone) {
	loc := lin.NewV3().Add(&b.BodyShift, &b.AnimationTranslate)
	loc.Add(loc, &b.AppendTranslate)
	rot := lin.NewQ().Mult(&b.AnimationRotate, &b.AppendRotate)
	rot.Mult(rot, &b.IKRotate)
	b.LocalToParent.SetVQ(loc, rot)
}

// propagate recomputes local_to_world in sorted order. Children always
// follow their parent in sk.order (the TransformLevel invariant), so a
// single forward pass is sufficient recursion. Dynamically-owned bones
// keep the local_to_world a physics write-back left them, but children
// still read it and update normally.
func (sk *Skeleton) propagate() {
	for _, i := range sk.order {
		b := sk.Bones[i]
		if b.dynamicallyOwned {
			continue
		}
		if b.Parent < 0 {
			b.LocalToWorld.Set(&b.LocalToParent)
			continue
		}
		parent := sk.Bones[b.Parent]
		b.LocalToWorld.Mult(&parent.LocalToWorld, &b.LocalToParent)
	}
}

// applyAppend computes append_rotate/append_translate from the source
// bone's own animation (local append) or its append chain (non-local),
// composing in the source's ik_rotate when the source is IK-driven, then
// recomposes this bone's local_to_parent.
func (sk *Skeleton) applyAppend(b *Bone) {
	cfg := b.Append
	if cfg.Source < 0 || cfg.Source >= len(sk.Bones) {
		return
	}
	src := sk.Bones[cfg.Source]

	if b.IsAppendRotate {
		var source *lin.Q
		if cfg.Local || src.Append == nil {
			source = &src.AnimationRotate
		} else {
			source = &src.AppendRotate
		}
		composed := source
		if src.IsIK {
			composed = lin.NewQ().Mult(source, &src.IKRotate)
		}
		b.AppendRotate.Set(lin.NewQ().Slerp(lin.QI, composed, cfg.Rate))
	}
	if b.IsAppendTranslate {
		var source *lin.V3
		if cfg.Local || src.Append == nil {
			source = &src.AnimationTranslate
		} else {
			source = &src.AppendTranslate
		}
		b.AppendTranslate.Scale(source, cfg.Rate)
	}
	sk.composeLocalToParent(b)
}
