package motion

import (
	"sort"

	"github.com/sorairo/mmdrt/bezier"
	"github.com/sorairo/mmdrt/math/lin"
)

// CameraTrack is the ordered set of keyframes authored for the camera.
type CameraTrack struct {
	frames []CameraKeyframe
}

// NewCameraTrack builds a track from keyframes in any order.
func NewCameraTrack(keyframes []CameraKeyframe) *CameraTrack {
	t := &CameraTrack{frames: append([]CameraKeyframe(nil), keyframes...)}
	sort.Slice(t.frames, func(i, j int) bool { return t.frames[i].Frame < t.frames[j].Frame })
	return t
}

func (t *CameraTrack) Len() int { return len(t.frames) }

func (t *CameraTrack) SearchClosest(f uint32) (prev, next *CameraKeyframe) {
	i := sort.Search(len(t.frames), func(i int) bool { return t.frames[i].Frame > f })
	if i > 0 {
		prev = &t.frames[i-1]
	}
	if i < len(t.frames) {
		next = &t.frames[i]
	}
	return prev, next
}

// CameraPose is the fully derived camera state: position and orientation,
// computed only after the raw authored parameters have been interpolated.
// Deriving position/rotation from interpolated raw parameters (rather than
// interpolating already-derived position/rotation) avoids discontinuities
// in the atan2/asin used to decompose an orbit angle.
type CameraPose struct {
	LookAt   lin.V3
	Angle    lin.V3
	Distance float64
	Fov      float64
	Position lin.V3
	Rotation lin.Q
}

// rawCamera is the interpolated-but-not-yet-derived parameter set.
type rawCamera struct {
	lookAt   lin.V3
	angle    lin.V3
	distance float64
	fov      float64
}

func (t *CameraTrack) seekRaw(f uint32, cache *bezier.Cache) rawCamera {
	prev, next := t.SearchClosest(f)
	switch {
	case prev == nil && next == nil:
		return rawCamera{distance: -45, fov: 30}
	case prev == nil:
		return rawCamera{lookAt: next.LookAt, angle: next.Angle, distance: next.Distance, fov: next.Fov}
	case next == nil:
		return rawCamera{lookAt: prev.LookAt, angle: prev.Angle, distance: prev.Distance, fov: prev.Fov}
	case prev.Frame == f:
		return rawCamera{lookAt: prev.LookAt, angle: prev.Angle, distance: prev.Distance, fov: prev.Fov}
	}

	coef := coefficient(prev.Frame, next.Frame, f)
	ax := curveValue(cache, next.InterpLookAtX, coef)
	ay := curveValue(cache, next.InterpLookAtY, coef)
	az := curveValue(cache, next.InterpLookAtZ, coef)
	aAng := curveValue(cache, next.InterpAngle, coef)
	aDist := curveValue(cache, next.InterpDistance, coef)
	aFov := curveValue(cache, next.InterpFov, coef)

	return rawCamera{
		lookAt: lin.V3{
			X: lin.Lerp(prev.LookAt.X, next.LookAt.X, ax),
			Y: lin.Lerp(prev.LookAt.Y, next.LookAt.Y, ay),
			Z: lin.Lerp(prev.LookAt.Z, next.LookAt.Z, az),
		},
		angle: lin.V3{
			X: lin.Lerp(prev.Angle.X, next.Angle.X, aAng),
			Y: lin.Lerp(prev.Angle.Y, next.Angle.Y, aAng),
			Z: lin.Lerp(prev.Angle.Z, next.Angle.Z, aAng),
		},
		distance: lin.Lerp(prev.Distance, next.Distance, aDist),
		fov:      lin.Lerp(prev.Fov, next.Fov, aFov),
	}
}

func derive(r rawCamera) CameraPose {
	rot := lin.NewQ().SetEulerXYZ(r.angle.X, r.angle.Y, r.angle.Z)
	// orbit: camera sits `distance` back along its own -Z from the look-at point.
	offX, offY, offZ := lin.MultSQ(0, 0, r.distance, rot)
	pos := lin.V3{X: r.lookAt.X + offX, Y: r.lookAt.Y + offY, Z: r.lookAt.Z + offZ}
	return CameraPose{LookAt: r.lookAt, Angle: r.angle, Distance: r.distance, Fov: r.fov, Position: pos, Rotation: *rot}
}

// Seek evaluates the track at frame f.
func (t *CameraTrack) Seek(f uint32, cache *bezier.Cache) CameraPose {
	return derive(t.seekRaw(f, cache))
}

// SeekPrecisely interpolates the raw look-at/angle/distance/fov parameters
// between f and f+1 by sub before deriving position/rotation, so that the
// derived camera pose never discontinuity-jumps across the angle wrap that
// atan2/asin introduce if position/rotation were interpolated directly.
func (t *CameraTrack) SeekPrecisely(f uint32, sub float64, cache *bezier.Cache) CameraPose {
	r0 := t.seekRaw(f, cache)
	if sub <= 0 {
		return derive(r0)
	}
	r1 := t.seekRaw(f+1, cache)
	mixed := rawCamera{
		lookAt:   *lin.NewV3().Lerp(&r0.lookAt, &r1.lookAt, sub),
		angle:    *lin.NewV3().Lerp(&r0.angle, &r1.angle, sub),
		distance: lin.Lerp(r0.distance, r1.distance, sub),
		fov:      lin.Lerp(r0.fov, r1.fov, sub),
	}
	return derive(mixed)
}
