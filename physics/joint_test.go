// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/sorairo/mmdrt/math/lin"
)

func TestJointSpringPullsFreeBodyTowardFrame(t *testing.T) {
	w := NewWorld(0)
	defer w.Destroy()

	anchorStart := lin.NewT()
	anchor := w.CreateBody(0, 0, 0, 0, 0, true, true, true, w.CreateSphere(0.1), anchorStart)
	w.AddBody(anchor, 0, 0)

	freeStart := lin.NewT().SetLoc(2, 0, 0)
	free := w.CreateBody(1, 0, 0, 0, 0, false, true, true, w.CreateSphere(0.1), freeStart)
	w.AddBody(free, 0, 0)

	j := NewJoint(anchor, free, lin.NewT(), lin.NewT())
	for axis := AxisX; axis < NumAxes; axis++ {
		j.SetSpring(axis, true, 50, 1)
	}
	w.AddJoint(j)

	startDist := free.Transform().Loc.X
	w.Step(1.0, 1.0/60.0, 60)
	endDist := free.Transform().Loc.X

	if endDist >= startDist {
		t.Errorf("expected spring to pull free body toward anchor, start=%v end=%v", startDist, endDist)
	}
}

func TestSpringDampingOpposesRelativeVelocity(t *testing.T) {
	newPair := func(damping float64) (*Body, *Body, *Joint) {
		w := NewWorld(0)
		a := w.CreateBody(1, 0, 0, 0, 0, false, true, true, w.CreateSphere(0.1), lin.NewT())
		w.AddBody(a, 0, 0)
		b := w.CreateBody(1, 0, 0, 0, 0, false, true, true, w.CreateSphere(0.1), lin.NewT())
		w.AddBody(b, 0, 0)
		a.SetVelocity(lin.NewV3().SetS(-5, 0, 0), lin.NewV3())
		b.SetVelocity(lin.NewV3().SetS(5, 0, 0), lin.NewV3())

		j := NewJoint(a, b, lin.NewT(), lin.NewT())
		j.SetSpring(AxisX, true, 100, damping)
		return a, b, j
	}

	// Both bodies start at the same position, so the stiffness term (which
	// depends on displacement) contributes nothing; only the velocity-
	// proportional damping term can change the relative velocity here.
	_, bUndamped, jUndamped := newPair(1) // 1.0 = no damping.
	jUndamped.solve(1.0 / 60.0)
	relUndamped := bUndamped.linVel.X - 5

	_, bDamped, jDamped := newPair(0) // 0.0 = maximal damping.
	jDamped.solve(1.0 / 60.0)
	relDamped := bDamped.linVel.X - 5

	if relUndamped != 0 {
		t.Errorf("expected undamped spring at zero displacement to leave velocity unchanged, got delta %v", relUndamped)
	}
	if relDamped >= 0 {
		t.Errorf("expected damped spring to pull body B's velocity back toward body A's, got delta %v", relDamped)
	}
}

func TestJointLimitFreeAxisWhenLowerExceedsUpper(t *testing.T) {
	j := &Joint{}
	j.SetLimit(AxisX, 1, -1)
	if !j.linearFree(AxisX) {
		t.Error("expected axis with lower > upper to be reported free")
	}
	j.SetLimit(AxisY, -1, 1)
	if j.linearFree(AxisY) {
		t.Error("expected axis with lower < upper to be reported limited")
	}
}

func TestRemoveJointDropsItFromWorldSteps(t *testing.T) {
	w := NewWorld(0)
	defer w.Destroy()
	a := w.CreateBody(0, 0, 0, 0, 0, true, true, true, w.CreateSphere(0.1), lin.NewT())
	w.AddBody(a, 0, 0)
	b := w.CreateBody(1, 0, 0, 0, 0, false, true, true, w.CreateSphere(0.1), lin.NewT().SetLoc(5, 0, 0))
	w.AddBody(b, 0, 0)

	j := NewJoint(a, b, lin.NewT(), lin.NewT())
	j.SetSpring(AxisX, true, 100, 1)
	w.AddJoint(j)
	if len(w.joints) != 1 {
		t.Fatalf("expected 1 joint after AddJoint, got %d", len(w.joints))
	}

	w.RemoveJoint(j)
	if len(w.joints) != 0 {
		t.Errorf("expected 0 joints after RemoveJoint, got %d", len(w.joints))
	}

	before := b.Transform().Loc.X
	w.Step(1.0, 1.0/60.0, 60)
	if b.Transform().Loc.X != before {
		t.Errorf("expected body unaffected by removed joint, moved from %v to %v", before, b.Transform().Loc.X)
	}
}
