// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/sorairo/mmdrt/math/lin"
)

// Shape is a physics collision primitive. A Shape is always in local space
// centered at the origin. Combine a shape with a transform to position the
// shape anywhere in world space. Shapes do not allocate memory.
type Shape interface {
	// Inertia is needed by the solver to build the inverse inertia tensor.
	// The input vector, inertia, is updated and returned.
	Inertia(mass float64, inertia *lin.V3) *lin.V3
}

// Shape interface
// ============================================================================
// box shape

// box is a collision shape primitive. It is an axis aligned bounding box that
// is centered at the origin and defined by half-lengths along each axis.
type box struct {
	Hx, Hy, Hz float64
}

// NewBox creates a Box shape. Negative input values are turned positive.
func NewBox(hx, hy, hz float64) Shape { return &box{math.Abs(hx), math.Abs(hy), math.Abs(hz)} }

func (b *box) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	lx2, ly2, lz2 := 4.0*b.Hx*b.Hx, 4.0*b.Hy*b.Hy, 4.0*b.Hz*b.Hz
	inertia.SetS(mass/12.0*(ly2+lz2), mass/12.0*(lx2+lz2), mass/12.0*(lx2+ly2))
	return inertia
}

// box
// ============================================================================
// sphere shape

// sphere is a collision shape primitive defined by a radius around the origin.
type sphere struct {
	R float64
}

// NewSphere creates a Sphere shape. Negative radius values are turned positive.
func NewSphere(radius float64) Shape { return &sphere{math.Abs(radius)} }

func (s *sphere) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	elem := 0.4 * mass * s.R * s.R
	inertia.SetS(elem, elem, elem)
	return inertia
}

// sphere
// ============================================================================
// capsule shape

// capsule is a collision shape primitive: a cylinder of half-length H along
// its local Y axis, capped with hemispheres of radius R.
type capsule struct {
	R, H float64
}

// NewCapsule creates a Capsule shape with radius r and half-length h between
// the centers of its two end caps. Negative inputs are turned positive.
func NewCapsule(r, h float64) Shape { return &capsule{math.Abs(r), math.Abs(h)} }

// Inertia approximates the capsule as a cylinder plus two half-sphere caps,
// the common approximation used by real-time rigid body solvers.
func (c *capsule) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	r2 := c.R * c.R
	cylH := 2 * c.H
	cylVol := math.Pi * r2 * cylH
	capVol := 4.0 / 3.0 * math.Pi * r2 * c.R
	total := cylVol + capVol
	if total <= 0 {
		inertia.SetS(0, 0, 0)
		return inertia
	}
	cylMass := mass * cylVol / total
	capMass := mass * capVol / total

	ixzCyl := cylMass * (3*r2 + cylH*cylH) / 12.0
	iyCyl := cylMass * r2 / 2.0

	// Two hemisphere caps, offset from center by H + 3R/8 (solid hemisphere
	// centroid), combined via the parallel axis theorem.
	d := c.H + 3.0*c.R/8.0
	iyCap := capMass * 2.0 * r2 / 5.0
	ixzCap := capMass*(2.0*r2/5.0+d*d)

	inertia.SetS(ixzCyl+ixzCap, iyCyl+iyCap, ixzCyl+ixzCap)
	return inertia
}

// capsule
// ============================================================================
