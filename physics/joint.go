// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/sorairo/mmdrt/math/lin"
)

// stopERP is the error-reduction parameter applied to a joint axis once its
// limit is exceeded. The bundled solver fixes this at the same constant on
// all six axes.
const stopERP = 0.475

// Axis indexes the six degrees of freedom of a Joint: three linear (in the
// joint frame), three angular (XYZ intrinsic Euler in the joint frame).
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisRX
	AxisRY
	AxisRZ
	NumAxes
)

// Joint is a 6-DOF spring constraint between two bodies, matching the
// bundled solver's generic six-axis constraint: each axis may carry a
// [lower, upper] limit and an independent Hookean spring.
type Joint struct {
	bodyA, bodyB *Body
	frameA       *lin.T // joint frame relative to bodyA's local space.
	frameB       *lin.T // joint frame relative to bodyB's local space.

	lowerLimit [NumAxes]float64
	upperLimit [NumAxes]float64

	springEnabled [NumAxes]bool
	stiffness     [NumAxes]float64
	damping       [NumAxes]float64
}

// NewJoint builds a 6-DOF spring joint anchored at frameA in bodyA's local
// space and frameB in bodyB's local space.
func NewJoint(bodyA, bodyB *Body, frameA, frameB *lin.T) *Joint {
	alloc.constraints++
	return &Joint{bodyA: bodyA, bodyB: bodyB, frameA: lin.NewT().Set(frameA), frameB: lin.NewT().Set(frameB)}
}

// SetLimit configures the [lower, upper] limit for one axis. lower > upper
// means the axis is free (no limit enforced), matching the bundled solver's
// convention.
func (j *Joint) SetLimit(axis Axis, lower, upper float64) *Joint {
	j.lowerLimit[axis] = lower
	j.upperLimit[axis] = upper
	return j
}

// SetSpring configures axis's Hookean spring. Linear springs are only
// meaningful when stiffness != 0; angular springs are always evaluated once
// enabled, matching the construction rule in the physics bridge.
func (j *Joint) SetSpring(axis Axis, enabled bool, stiffness, damping float64) *Joint {
	j.springEnabled[axis] = enabled
	j.stiffness[axis] = stiffness
	j.damping[axis] = damping
	return j
}

// worldFrame returns the joint frame in world space for the given body.
func worldFrame(body *Body, local *lin.T) *lin.T {
	return lin.NewT().Mult(body.world, local)
}

func (j *Joint) linearFree(axis Axis) bool {
	return j.lowerLimit[axis] > j.upperLimit[axis]
}

// dampingFactor matches the bundled solver's spring damping convention:
// damping near 0 means heavily damped, 1.0 (the default) means undamped.
func dampingFactor(damping float64) float64 {
	return 1 - math.Max(0, math.Min(1, damping))
}

// springDamping returns the velocity-proportional damping force/torque
// opposing velAlongAxis, scaled by sqrt(|stiffness|) the way the bundled
// solver ties damping strength to spring strength. The sign is positive
// here, not negative as in a force applied directly to a single body:
// applyLinearCorrection/applyAngularCorrection add this term to bodyA and
// subtract it from bodyB, so a positive term already opposes a positive
// relative velocity (bodyB moving away from bodyA along the axis).
func springDamping(damping, stiffness, velAlongAxis float64) float64 {
	df := dampingFactor(damping)
	if df <= 1e-6 {
		return 0
	}
	return df * math.Sqrt(math.Abs(stiffness)) * velAlongAxis
}

// solve applies one substep of spring forces and limit correction impulses.
// The joint is modeled as a penalty/spring system rather than a full
// sequential-impulse LCP solve: acceptable because the bridge treats the
// underlying solver as a replaceable black box and MMD joint chains are
// lightly loaded (hair, skirts, chest) rather than structural.
func (j *Joint) solve(h float64) {
	wa := worldFrame(j.bodyA, j.frameA)
	wb := worldFrame(j.bodyB, j.frameB)

	// linear axes: displacement of B's frame origin from A's, in A's frame.
	delta := lin.NewV3().Sub(wb.Loc, wa.Loc)
	invA := lin.NewQ().Inv(wa.Rot)
	localDelta := lin.NewV3().MultvQ(delta, invA)

	relLinVel := lin.NewV3().Sub(j.bodyB.linVel, j.bodyA.linVel)
	localLinVel := lin.NewV3().MultvQ(relLinVel, invA)

	linDeltaArr := [3]float64{localDelta.X, localDelta.Y, localDelta.Z}
	linVelArr := [3]float64{localLinVel.X, localLinVel.Y, localLinVel.Z}
	forceLocal := lin.NewV3()
	forceComp := [3]float64{}
	for i := 0; i < 3; i++ {
		axis := Axis(i)
		x := linDeltaArr[i]
		if !j.linearFree(axis) {
			if x < j.lowerLimit[axis] {
				forceComp[i] += (x - j.lowerLimit[axis]) * stopERP / h
			} else if x > j.upperLimit[axis] {
				forceComp[i] += (x - j.upperLimit[axis]) * stopERP / h
			}
		}
		if j.springEnabled[axis] {
			forceComp[i] += j.stiffness[axis] * x
			forceComp[i] += springDamping(j.damping[axis], j.stiffness[axis], linVelArr[i])
		}
	}
	forceLocal.SetS(forceComp[0], forceComp[1], forceComp[2])
	forceWorld := lin.NewV3().MultvQ(forceLocal, wa.Rot)

	applyLinearCorrection(j.bodyA, j.bodyB, forceWorld, h)

	// angular axes: XYZ intrinsic Euler deviation of B's frame from A's.
	relRot := lin.NewQ().Mult(lin.NewQ().Inv(wa.Rot), wb.Rot)
	rx, ry, rz := relRot.EulerXYZ()
	angDeltaArr := [3]float64{rx, ry, rz}

	relAngVel := lin.NewV3().Sub(j.bodyB.angVel, j.bodyA.angVel)
	localAngVel := lin.NewV3().MultvQ(relAngVel, invA)
	angVelArr := [3]float64{localAngVel.X, localAngVel.Y, localAngVel.Z}

	torqueComp := [3]float64{}
	for i := 0; i < 3; i++ {
		axis := AxisRX + Axis(i)
		x := angDeltaArr[i]
		if !j.linearFree(axis) {
			if x < j.lowerLimit[axis] {
				torqueComp[i] += (x - j.lowerLimit[axis]) * stopERP / h
			} else if x > j.upperLimit[axis] {
				torqueComp[i] += (x - j.upperLimit[axis]) * stopERP / h
			}
		}
		if j.springEnabled[axis] {
			torqueComp[i] += j.stiffness[axis] * x
			torqueComp[i] += springDamping(j.damping[axis], j.stiffness[axis], angVelArr[i])
		}
	}
	torqueLocal := lin.NewV3().SetS(torqueComp[0], torqueComp[1], torqueComp[2])
	torqueWorld := lin.NewV3().MultvQ(torqueLocal, wa.Rot)
	applyAngularCorrection(j.bodyA, j.bodyB, torqueWorld, h)
}

func applyLinearCorrection(a, b *Body, force *lin.V3, h float64) {
	if !a.kinematic && a.invMass > 0 {
		a.linVel.X += force.X * a.invMass * h
		a.linVel.Y += force.Y * a.invMass * h
		a.linVel.Z += force.Z * a.invMass * h
	}
	if !b.kinematic && b.invMass > 0 {
		b.linVel.X -= force.X * b.invMass * h
		b.linVel.Y -= force.Y * b.invMass * h
		b.linVel.Z -= force.Z * b.invMass * h
	}
}

func applyAngularCorrection(a, b *Body, torque *lin.V3, h float64) {
	if !a.kinematic && a.invMass > 0 {
		ia := a.invInertiaWorld()
		delta := lin.NewV3().MultMv(ia, torque)
		a.angVel.X += delta.X * h
		a.angVel.Y += delta.Y * h
		a.angVel.Z += delta.Z * h
	}
	if !b.kinematic && b.invMass > 0 {
		ib := b.invInertiaWorld()
		delta := lin.NewV3().MultMv(ib, torque)
		b.angVel.X -= delta.X * h
		b.angVel.Y -= delta.Y * h
		b.angVel.Z -= delta.Z * h
	}
}

// RemoveJoint removes a joint from the world and releases its solver slot.
func (w *World) RemoveJoint(j *Joint) {
	for i, jj := range w.joints {
		if jj == j {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			alloc.constraints--
			return
		}
	}
}

// AddJoint activates a joint so it is evaluated each Step.
func (w *World) AddJoint(j *Joint) {
	w.joints = append(w.joints, j)
}
