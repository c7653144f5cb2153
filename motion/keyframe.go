// Package motion holds per-bone, per-morph, per-IK and per-camera keyframe
// tracks sampled on the 30 FPS VMD frame grid, plus the seek operations that
// turn a track and a frame number into an interpolated pose value.
package motion

import (
	"github.com/sorairo/mmdrt/bezier"
	"github.com/sorairo/mmdrt/math/lin"
)

// BoneKeyframe is a single authored bone pose at a given frame, carrying the
// four Bezier descriptors that shape the interpolation leading into it from
// the previous keyframe.
type BoneKeyframe struct {
	Frame          uint32
	Translation    lin.V3
	Rotation       lin.Q
	InterpX        bezier.Key
	InterpY        bezier.Key
	InterpZ        bezier.Key
	InterpRotation bezier.Key
	PhysicsEnabled bool
}

// MorphKeyframe is a single authored morph weight at a given frame.
// Morph interpolation is always linear in the frame coefficient.
type MorphKeyframe struct {
	Frame  uint32
	Weight float64
}

// IKKeyframe is a single authored IK on/off toggle at a given frame.
type IKKeyframe struct {
	Frame   uint32
	Enabled bool
}

// CameraKeyframe is a single authored camera pose. LookAt, Angle, Distance
// and Fov are the raw authored parameters; position/rotation are derived
// from them rather than stored, so interpolation never needs to invert an
// atan2/asin back into raw parameters.
type CameraKeyframe struct {
	Frame           uint32
	LookAt          lin.V3
	Angle           lin.V3 // XYZ Euler orbit angle, radians.
	Distance        float64
	Fov             float64
	InterpLookAtX   bezier.Key
	InterpLookAtY   bezier.Key
	InterpLookAtZ   bezier.Key
	InterpAngle     bezier.Key
	InterpDistance  bezier.Key
	InterpFov       bezier.Key
}

// BoneFrame is the result of evaluating a BoneTrack at a frame: an
// interpolated pose plus the bookkeeping a skeleton needs to cross-fade
// between user/physics driven motion and animated motion.
type BoneFrame struct {
	Translation lin.V3
	Rotation    lin.Q

	// NextInterp carries the interpolation descriptors of the bracketing
	// "next" keyframe (X, Y, Z translation, then rotation), matching the
	// VMD convention that a keyframe's curve shapes the segment leading
	// into it.
	NextInterp [4]bezier.Key

	// HasMix reports whether LocalTransformMix is meaningful; it is set
	// only across a physics-enabled/disabled edge.
	HasMix           bool
	LocalTransformMix float64

	EnablePhysics  bool
	DisablePhysics bool
}

// coefficient returns the normalized position of frame f within [prev,next].
// Returns 0 if prev == next (zero-interval keyframes collapse to the prev
// value, treated as identity per the zero-interval edge case).
func coefficient(prev, next, f uint32) float64 {
	if next <= prev {
		return 0
	}
	return float64(f-prev) / float64(next-prev)
}
