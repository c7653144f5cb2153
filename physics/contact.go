// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/sorairo/mmdrt/math/lin"
)

// resolveContacts is a deliberately lightweight narrow phase: MMD rigid
// bodies are overwhelmingly loose accessory physics (skirts, hair, chest)
// whose visual correctness depends on joint springs reaching a rest pose,
// not on exact contact manifolds. Every body pair where at least one body's
// mask includes the other's collision group is approximated by its bounding sphere and pushed apart along the
// separating axis with a restitution-scaled velocity response. Bodies with
// NoContactResponse never generate contacts.
func resolveContacts(w *World) {
	bodies := make([]*Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		if !b.noContactResponse {
			bodies = append(bodies, b)
		}
	}
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			if a.mask&b.group == 0 && b.mask&a.group == 0 {
				continue
			}
			resolvePair(a, b)
		}
	}
}

func boundingRadius(s Shape) float64 {
	switch v := s.(type) {
	case *sphere:
		return v.R
	case *box:
		return math.Sqrt(v.Hx*v.Hx + v.Hy*v.Hy + v.Hz*v.Hz)
	case *capsule:
		return v.R + v.H
	}
	return 0
}

func resolvePair(a, b *Body) {
	delta := lin.NewV3().Sub(b.world.Loc, a.world.Loc)
	dist := delta.Len()
	minDist := boundingRadius(a.shape) + boundingRadius(b.shape)
	if dist >= minDist || dist < 1e-9 {
		return
	}
	n := lin.NewV3().Scale(delta, 1.0/dist)
	penetration := minDist - dist

	invSum := a.invMass + b.invMass
	if invSum == 0 {
		return
	}

	// positional correction, split by inverse mass.
	corrA := penetration * (a.invMass / invSum)
	corrB := penetration * (b.invMass / invSum)
	if !a.kinematic && a.invMass > 0 {
		a.world.Loc.X -= n.X * corrA
		a.world.Loc.Y -= n.Y * corrA
		a.world.Loc.Z -= n.Z * corrA
	}
	if !b.kinematic && b.invMass > 0 {
		b.world.Loc.X += n.X * corrB
		b.world.Loc.Y += n.Y * corrB
		b.world.Loc.Z += n.Z * corrB
	}

	relVel := lin.NewV3().Sub(b.linVel, a.linVel)
	sep := relVel.Dot(n)
	if sep >= 0 {
		return // separating already.
	}
	restitution := (a.restitution + b.restitution) / 2
	impulseMag := -(1 + restitution) * sep / invSum
	impulse := lin.NewV3().Scale(n, impulseMag)
	if !a.kinematic && a.invMass > 0 {
		a.linVel.X -= impulse.X * a.invMass
		a.linVel.Y -= impulse.Y * a.invMass
		a.linVel.Z -= impulse.Z * a.invMass
	}
	if !b.kinematic && b.invMass > 0 {
		b.linVel.X += impulse.X * b.invMass
		b.linVel.Y += impulse.Y * b.invMass
		b.linVel.Z += impulse.Z * b.invMass
	}
}
