package skeleton

import (
	"math"

	"github.com/sorairo/mmdrt/math/lin"
	"github.com/tbogdala/groggy"
)

// ikEnabledAt answers the enabled query for an IK-flagged bone, defaulting
// to enabled when no query function is wired up.
func (sk *Skeleton) ikEnabledAt(boneIndex int) bool {
	if sk.IKEnabledQuery == nil {
		return true
	}
	return sk.IKEnabledQuery(boneIndex)
}

// solveIK runs the CCD solve for b's IK config: iterating over the chain
// from effector toward root, rotating each link toward closing the gap
// between the effector and the target, clamped per link and per step.
func (sk *Skeleton) solveIK(b *Bone) {
	cfg := b.IK
	if cfg.Target < 0 || cfg.Target >= len(sk.Bones) || cfg.Effector < 0 || cfg.Effector >= len(sk.Bones) {
		return
	}
	target := sk.Bones[cfg.Target]
	effector := sk.Bones[cfg.Effector]

	unitAngle := cfg.UnitAngle
	if unitAngle <= 0 {
		unitAngle = math.Pi / 4
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = 1e-3
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 1
	}

	for iter := 0; iter < iterations; iter++ {
		if effector.LocalToWorld.Loc.Dist(target.LocalToWorld.Loc) < tolerance {
			return
		}
		for li, linkIndex := range cfg.Chain {
			if linkIndex < 0 || linkIndex >= len(sk.Bones) {
				continue
			}
			link := sk.Bones[linkIndex]
			sk.solveLink(link, li, cfg, unitAngle, effector, target)

			// Chain is ordered innermost (effector-adjacent) first, so
			// link's descendants toward the effector are the earlier
			// entries, walked back-to-front, then the effector itself.
			descendants := make([]int, 0, li+2)
			descendants = append(descendants, linkIndex)
			for k := li - 1; k >= 0; k-- {
				descendants = append(descendants, cfg.Chain[k])
			}
			descendants = append(descendants, cfg.Effector)
			sk.propagateChain(descendants)
		}
	}
}

// solveLink rotates one chain link so the effector swings toward the
// target, clamped to unitAngle and any configured per-link Euler limits.
func (sk *Skeleton) solveLink(link *Bone, linkPos int, cfg *IKConfig, unitAngle float64, effector, target *Bone) {
	toEffector := lin.NewV3().Sub(effector.LocalToWorld.Loc, link.LocalToWorld.Loc)
	toTarget := lin.NewV3().Sub(target.LocalToWorld.Loc, link.LocalToWorld.Loc)
	if toEffector.Len() < 1e-9 || toTarget.Len() < 1e-9 {
		groggy.Logsf("DEBUG", "solveLink: degenerate vector at link %q, skipping", link.Name)
		sk.DegenerateIK++
		return // zero-length: skip link, treated as identity per the degenerate-vector rule.
	}
	toEffector.Unit()
	toTarget.Unit()

	axis := lin.NewV3().Cross(toEffector, toTarget)
	axisLen := axis.Len()
	cosAngle := lin.Clamp(toEffector.Dot(toTarget), -1, 1)
	angle := math.Acos(cosAngle)
	if angle > unitAngle {
		angle = unitAngle
	}
	if axisLen < 1e-9 || angle < 1e-9 {
		return
	}
	axis.Div(axisLen)

	// axis+angle is computed in world space; convert into the link's local
	// frame by rotating it through the inverse of the link's current world
	// orientation before composing into ik_rotate.
	invWorldRot := lin.NewQ().Inv(link.LocalToWorld.Rot)
	localAxis := lin.NewV3().MultvQ(axis, invWorldRot)
	delta := lin.NewQ().SetAa(localAxis.X, localAxis.Y, localAxis.Z, angle)

	link.IKRotate.Mult(&link.IKRotate, delta)

	if cfg.Limits != nil && linkPos < len(cfg.Limits) {
		clampIKRotate(link, cfg.Limits[linkPos])
	}
	sk.composeLocalToParent(link)
}

// clampIKRotate projects the link's accumulated ik_rotate into XYZ Euler
// angles and clamps each axis to its configured [min,max], pinning locked
// axes to 0.
func clampIKRotate(link *Bone, limit LinkLimit) {
	if !limit.Enabled {
		return
	}
	rx, ry, rz := link.IKRotate.EulerXYZ()
	if limit.LockX {
		rx = 0
	} else {
		rx = lin.Clamp(rx, limit.MinX, limit.MaxX)
	}
	if limit.LockY {
		ry = 0
	} else {
		ry = lin.Clamp(ry, limit.MinY, limit.MaxY)
	}
	if limit.LockZ {
		rz = 0
	} else {
		rz = lin.Clamp(rz, limit.MinZ, limit.MaxZ)
	}
	link.IKRotate.SetEulerXYZ(rx, ry, rz)
}

// propagateChain recomputes local_to_world for bones in descendants, in
// the given (parent-before-child) order, so the next link in the CCD
// sweep reads the effector's updated position.
func (sk *Skeleton) propagateChain(descendants []int) {
	for _, idx := range descendants {
		if idx < 0 || idx >= len(sk.Bones) {
			continue
		}
		b := sk.Bones[idx]
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
