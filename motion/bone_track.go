package motion

import (
	"sort"

	"github.com/sorairo/mmdrt/bezier"
	"github.com/sorairo/mmdrt/math/lin"
)

// BoneTrack is the ordered set of keyframes authored for one bone.
// Keyframes are kept sorted by Frame so lookups bracket a query frame in
// O(log N) via binary search.
type BoneTrack struct {
	frames []BoneKeyframe
}

// NewBoneTrack builds a track from keyframes in any order, sorting them by
// frame index once up front.
func NewBoneTrack(keyframes []BoneKeyframe) *BoneTrack {
	t := &BoneTrack{frames: append([]BoneKeyframe(nil), keyframes...)}
	sort.Slice(t.frames, func(i, j int) bool { return t.frames[i].Frame < t.frames[j].Frame })
	return t
}

// Len returns the number of keyframes in the track.
func (t *BoneTrack) Len() int { return len(t.frames) }

// MaxFrame returns the last authored frame index, or 0 for an empty track.
func (t *BoneTrack) MaxFrame() uint32 {
	if len(t.frames) == 0 {
		return 0
	}
	return t.frames[len(t.frames)-1].Frame
}

// Find returns the keyframe at exactly f, if one exists.
func (t *BoneTrack) Find(f uint32) (BoneKeyframe, bool) {
	i := sort.Search(len(t.frames), func(i int) bool { return t.frames[i].Frame >= f })
	if i < len(t.frames) && t.frames[i].Frame == f {
		return t.frames[i], true
	}
	return BoneKeyframe{}, false
}

// SearchClosest returns the keyframes bracketing f: the last keyframe at or
// before f, and the first keyframe strictly after f. Either may be absent.
func (t *BoneTrack) SearchClosest(f uint32) (prev, next *BoneKeyframe) {
	i := sort.Search(len(t.frames), func(i int) bool { return t.frames[i].Frame > f })
	if i > 0 {
		prev = &t.frames[i-1]
	}
	if i < len(t.frames) {
		next = &t.frames[i]
	}
	return prev, next
}

// Seek evaluates the track at frame f, resolving Bezier curves through
// cache. An empty track yields the identity pose; before the first or after
// the last keyframe the nearest keyframe is held; across a physics
// enabled/disabled edge the next keyframe's pose is returned with HasMix set.
func (t *BoneTrack) Seek(f uint32, cache *bezier.Cache) BoneFrame {
	prev, next := t.SearchClosest(f)
	switch {
	case prev == nil && next == nil:
		return BoneFrame{Rotation: *lin.NewQI()}
	case prev == nil:
		return BoneFrame{
			Translation:    next.Translation,
			Rotation:       next.Rotation,
			NextInterp:     [4]bezier.Key{next.InterpX, next.InterpY, next.InterpZ, next.InterpRotation},
			EnablePhysics:  next.PhysicsEnabled,
		}
	case next == nil:
		return BoneFrame{
			Translation:    prev.Translation,
			Rotation:       prev.Rotation,
			NextInterp:     [4]bezier.Key{prev.InterpX, prev.InterpY, prev.InterpZ, prev.InterpRotation},
			EnablePhysics:  prev.PhysicsEnabled,
		}
	}

	if prev.Frame == f {
		return BoneFrame{
			Translation:   prev.Translation,
			Rotation:      prev.Rotation,
			NextInterp:    [4]bezier.Key{next.InterpX, next.InterpY, next.InterpZ, next.InterpRotation},
			EnablePhysics: prev.PhysicsEnabled,
		}
	}

	coef := coefficient(prev.Frame, next.Frame, f)
	nextInterp := [4]bezier.Key{next.InterpX, next.InterpY, next.InterpZ, next.InterpRotation}

	if prev.PhysicsEnabled && !next.PhysicsEnabled {
		return BoneFrame{
			Translation:       next.Translation,
			Rotation:          next.Rotation,
			NextInterp:        nextInterp,
			HasMix:            true,
			LocalTransformMix: coef,
			DisablePhysics:    true,
		}
	}
	if !prev.PhysicsEnabled && next.PhysicsEnabled {
		return BoneFrame{
			Translation:       next.Translation,
			Rotation:          next.Rotation,
			NextInterp:        nextInterp,
			HasMix:            true,
			LocalTransformMix: coef,
			EnablePhysics:     false, // only flips true once prev & next both agree.
		}
	}

	amountX := curveValue(cache, next.InterpX, coef)
	amountY := curveValue(cache, next.InterpY, coef)
	amountZ := curveValue(cache, next.InterpZ, coef)
	amountR := curveValue(cache, next.InterpRotation, coef)

	translation := lin.V3{
		X: lin.Lerp(prev.Translation.X, next.Translation.X, amountX),
		Y: lin.Lerp(prev.Translation.Y, next.Translation.Y, amountY),
		Z: lin.Lerp(prev.Translation.Z, next.Translation.Z, amountZ),
	}
	rotation := lin.NewQ().Slerp(&prev.Rotation, &next.Rotation, amountR)

	return BoneFrame{
		Translation:   translation,
		Rotation:      *rotation,
		NextInterp:    nextInterp,
		EnablePhysics: prev.PhysicsEnabled && next.PhysicsEnabled,
	}
}

// SeekPrecisely evaluates the track at frame f and then linearly blends
// toward Seek(f+1, ...) by sub, a sub-frame fraction in [0,1]. Used when
// advancing by a real dt that does not land exactly on an integer frame.
func (t *BoneTrack) SeekPrecisely(f uint32, sub float64, cache *bezier.Cache) BoneFrame {
	f0 := t.Seek(f, cache)
	if sub <= 0 {
		return f0
	}
	f1 := t.Seek(f+1, cache)

	mixHasMix, mix := false, 0.0
	switch {
	case f0.HasMix && f1.HasMix:
		mixHasMix, mix = true, lin.Lerp(f0.LocalTransformMix, f1.LocalTransformMix, sub)
	case f1.HasMix:
		mixHasMix, mix = true, sub*f1.LocalTransformMix
	case f0.HasMix:
		mixHasMix, mix = true, (1-sub)*f0.LocalTransformMix
	}

	translation := lin.NewV3().Lerp(&f0.Translation, &f1.Translation, sub)
	rotation := lin.NewQ().Slerp(&f0.Rotation, &f1.Rotation, sub)

	return BoneFrame{
		Translation:       *translation,
		Rotation:          *rotation,
		NextInterp:        f1.NextInterp,
		HasMix:            mixHasMix,
		LocalTransformMix: mix,
		EnablePhysics:     f0.EnablePhysics && f1.EnablePhysics,
		DisablePhysics:    f0.DisablePhysics || f1.DisablePhysics,
	}
}

// curveValue resolves a Bezier descriptor against the cache and evaluates
// it at coef, short-circuiting the common linear-descriptor case.
func curveValue(cache *bezier.Cache, key bezier.Key, coef float64) float64 {
	if key.Linear() {
		return coef
	}
	return cache.Get(key).Value(coef)
}
