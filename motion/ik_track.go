package motion

import "sort"

// IKTrack is the ordered set of enable/disable toggles authored for one IK
// chain. The value at any frame is the most recently authored flag at or
// before that frame, defaulting to enabled when nothing has been authored.
type IKTrack struct {
	frames []IKKeyframe
}

// NewIKTrack builds a track from keyframes in any order.
func NewIKTrack(keyframes []IKKeyframe) *IKTrack {
	t := &IKTrack{frames: append([]IKKeyframe(nil), keyframes...)}
	sort.Slice(t.frames, func(i, j int) bool { return t.frames[i].Frame < t.frames[j].Frame })
	return t
}

func (t *IKTrack) Len() int { return len(t.frames) }

// EnabledAt returns whether IK is enabled at frame f.
func (t *IKTrack) EnabledAt(f uint32) bool {
	i := sort.Search(len(t.frames), func(i int) bool { return t.frames[i].Frame > f })
	if i == 0 {
		return true // default: enabled before any authored toggle.
	}
	return t.frames[i-1].Enabled
}
