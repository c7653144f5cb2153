package motion

import (
	"sort"

	"github.com/sorairo/mmdrt/math/lin"
)

// MorphTrack is the ordered set of weight keyframes authored for one morph.
// Interpolation between keyframes is always linear; VMD morph tracks carry
// no Bezier descriptors.
type MorphTrack struct {
	frames []MorphKeyframe
}

// NewMorphTrack builds a track from keyframes in any order.
func NewMorphTrack(keyframes []MorphKeyframe) *MorphTrack {
	t := &MorphTrack{frames: append([]MorphKeyframe(nil), keyframes...)}
	sort.Slice(t.frames, func(i, j int) bool { return t.frames[i].Frame < t.frames[j].Frame })
	return t
}

func (t *MorphTrack) Len() int { return len(t.frames) }

func (t *MorphTrack) MaxFrame() uint32 {
	if len(t.frames) == 0 {
		return 0
	}
	return t.frames[len(t.frames)-1].Frame
}

func (t *MorphTrack) Find(f uint32) (MorphKeyframe, bool) {
	i := sort.Search(len(t.frames), func(i int) bool { return t.frames[i].Frame >= f })
	if i < len(t.frames) && t.frames[i].Frame == f {
		return t.frames[i], true
	}
	return MorphKeyframe{}, false
}

func (t *MorphTrack) SearchClosest(f uint32) (prev, next *MorphKeyframe) {
	i := sort.Search(len(t.frames), func(i int) bool { return t.frames[i].Frame > f })
	if i > 0 {
		prev = &t.frames[i-1]
	}
	if i < len(t.frames) {
		next = &t.frames[i]
	}
	return prev, next
}

// Seek evaluates the track's weight at frame f.
func (t *MorphTrack) Seek(f uint32) float64 {
	prev, next := t.SearchClosest(f)
	switch {
	case prev == nil && next == nil:
		return 0
	case prev == nil:
		return next.Weight
	case next == nil:
		return prev.Weight
	case prev.Frame == f:
		return prev.Weight
	}
	coef := coefficient(prev.Frame, next.Frame, f)
	return lin.Lerp(prev.Weight, next.Weight, coef)
}

// SeekPrecisely evaluates at f then linearly blends toward f+1 by sub.
func (t *MorphTrack) SeekPrecisely(f uint32, sub float64) float64 {
	w0 := t.Seek(f)
	if sub <= 0 {
		return w0
	}
	w1 := t.Seek(f + 1)
	return lin.Lerp(w0, w1, sub)
}
