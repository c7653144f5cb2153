// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"
	"testing"

	"github.com/sorairo/mmdrt/math/lin"
)

func TestSphereInertiaIsUniform(t *testing.T) {
	s := NewSphere(2)
	inertia := s.Inertia(5, lin.NewV3())
	want := 0.4 * 5 * 4.0
	if math.Abs(inertia.X-want) > 1e-9 || inertia.X != inertia.Y || inertia.Y != inertia.Z {
		t.Errorf("sphere inertia = %+v, want uniform %v", inertia, want)
	}
}

func TestBoxInertiaGrowsWithHalfExtents(t *testing.T) {
	small := NewBox(1, 1, 1).Inertia(1, lin.NewV3())
	large := NewBox(2, 1, 1).Inertia(1, lin.NewV3())
	if large.Y <= small.Y || large.Z <= small.Z {
		t.Errorf("widening X half-extent should increase Y/Z inertia, got small=%+v large=%+v", small, large)
	}
}

func TestNewShapesTurnNegativeDimensionsPositive(t *testing.T) {
	s := NewSphere(-3).(*sphere)
	if s.R != 3 {
		t.Errorf("sphere radius = %v, want 3", s.R)
	}
	bx := NewBox(-1, -2, -3).(*box)
	if bx.Hx != 1 || bx.Hy != 2 || bx.Hz != 3 {
		t.Errorf("box half extents = %+v, want (1,2,3)", bx)
	}
	c := NewCapsule(-1, -2).(*capsule)
	if c.R != 1 || c.H != 2 {
		t.Errorf("capsule (R,H) = (%v,%v), want (1,2)", c.R, c.H)
	}
}

func TestCapsuleInertiaDegeneratesToZeroWhenDimensionless(t *testing.T) {
	c := &capsule{R: 0, H: 0}
	inertia := c.Inertia(5, lin.NewV3())
	if inertia.X != 0 || inertia.Y != 0 || inertia.Z != 0 {
		t.Errorf("expected zero inertia for a dimensionless capsule, got %+v", inertia)
	}
}

func TestBoundingRadiusCoversEachShapeKind(t *testing.T) {
	if r := boundingRadius(&sphere{R: 2}); r != 2 {
		t.Errorf("sphere bounding radius = %v, want 2", r)
	}
	if r := boundingRadius(&box{Hx: 3, Hy: 4, Hz: 0}); math.Abs(r-5) > 1e-9 {
		t.Errorf("box bounding radius = %v, want 5", r)
	}
	if r := boundingRadius(&capsule{R: 1, H: 2}); r != 3 {
		t.Errorf("capsule bounding radius = %v, want 3", r)
	}
}
