package motion

import (
	"math"

	"github.com/sorairo/mmdrt/bezier"
	"github.com/sorairo/mmdrt/math/lin"
)

// Epsilon is the minimum magnitude a weight must carry to be evaluated.
const Epsilon = 1e-3

// DefaultLayerCount is the number of layers a Manager starts with.
const DefaultLayerCount = 4

// Animation is one loaded motion: a set of bone, morph and IK tracks keyed
// by the index of the bone/morph/IK-chain they drive, sampled on the VMD
// 30 FPS frame grid.
type Animation struct {
	Name        string
	BoneTracks  map[int]*BoneTrack
	MorphTracks map[int]*MorphTrack
	IKTracks    map[int]*IKTrack
	maxFrame    uint32
}

// NewAnimation builds an Animation and computes its max frame from the
// longest track supplied.
func NewAnimation(name string, bones map[int]*BoneTrack, morphs map[int]*MorphTrack, ik map[int]*IKTrack) *Animation {
	a := &Animation{Name: name, BoneTracks: bones, MorphTracks: morphs, IKTracks: ik}
	for _, t := range bones {
		if f := t.MaxFrame(); f > a.maxFrame {
			a.maxFrame = f
		}
	}
	for _, t := range morphs {
		if f := t.MaxFrame(); f > a.maxFrame {
			a.maxFrame = f
		}
	}
	return a
}

// MaxFrame returns the last authored frame across every bone and morph
// track in the animation; IK tracks are not counted.
func (a *Animation) MaxFrame() uint32 { return a.maxFrame }

// IKEnabledAt reports whether the IK chain rooted at boneIndex is enabled
// at frame f, defaulting to enabled when the animation has no IK track for
// that bone.
func (a *Animation) IKEnabledAt(boneIndex int, f uint32) bool {
	t, ok := a.IKTracks[boneIndex]
	if !ok {
		return true
	}
	return t.EnabledAt(f)
}

// evaluateWithWeight additively applies the animation's pose at frame
// (fractional) to bones and morphs, scaled by weight.
func (a *Animation) evaluateWithWeight(frame, weight float64, bones BoneSink, morphs MorphSink, cache *bezier.Cache) {
	f0 := uint32(math.Floor(frame))
	sub := frame - math.Floor(frame)

	for boneIndex, track := range a.BoneTracks {
		if boneIndex < 0 || boneIndex >= bones.BoneCount() {
			continue
		}
		bf := track.SeekPrecisely(f0, sub, cache)
		t := lin.NewV3().Scale(&bf.Translation, weight)
		bones.AddAnimationTranslate(boneIndex, t)
		bones.MultAnimationRotate(boneIndex, lin.NewQ().Slerp(lin.QI, &bf.Rotation, weight))
	}
	for morphIndex, track := range a.MorphTracks {
		if morphIndex < 0 || morphIndex >= morphs.MorphCount() {
			continue
		}
		w := track.SeekPrecisely(f0, sub)
		morphs.SetWeight(morphIndex, morphs.Weight(morphIndex)+w*weight)
	}
}

// BoneSink is the subset of a bone set an animation layer writes into and
// reads back from: the per-tick animation accumulators, reset once per
// tick before any layer evaluates.
type BoneSink interface {
	BoneCount() int
	AddAnimationTranslate(boneIndex int, delta *lin.V3)
	MultAnimationRotate(boneIndex int, delta *lin.Q)
	SetAnimationTranslate(boneIndex int, t lin.V3)
	SetAnimationRotate(boneIndex int, r lin.Q)
	AnimationTranslate(boneIndex int) lin.V3
	AnimationRotate(boneIndex int) lin.Q
}

// MorphSink is the subset of a morph engine an animation layer drives.
type MorphSink interface {
	MorphCount() int
	Weight(morphIndex int) float64
	SetWeight(morphIndex int, w float64)
}

// BonePose is a captured bone animation pose, used by transition snapshots.
type BonePose struct {
	Translation lin.V3
	Rotation    lin.Q
}

// Snapshot is a sparse capture of the bone and morph pose in effect at the
// moment a layer starts transitioning to a new animation: only entries
// whose magnitude exceeds Epsilon are kept.
type Snapshot struct {
	Bones  map[int]BonePose
	Morphs map[int]float64
}

// CaptureSnapshot reads the current animation accumulators off bones and
// morphs into a sparse Snapshot.
func CaptureSnapshot(bones BoneSink, morphs MorphSink) *Snapshot {
	snap := &Snapshot{Bones: map[int]BonePose{}, Morphs: map[int]float64{}}
	for i := 0; i < bones.BoneCount(); i++ {
		t := bones.AnimationTranslate(i)
		r := bones.AnimationRotate(i)
		if t.Len() > Epsilon || math.Abs(1-math.Abs(r.W)) > Epsilon {
			snap.Bones[i] = BonePose{Translation: t, Rotation: r}
		}
	}
	for i := 0; i < morphs.MorphCount(); i++ {
		if w := morphs.Weight(i); w > Epsilon || w < -Epsilon {
			snap.Morphs[i] = w
		}
	}
	return snap
}

// State is the playback state of one animation layer.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	FadingIn
	FadingOut
	Transitioning
)

// Layer is one slot of the animation manager: an optional animation, its
// playback state, and the fade/transition bookkeeping that state needs.
type Layer struct {
	Anim   *Animation
	State  State
	Weight float64
	Speed  float64
	Loop   bool

	FadeInTime, FadeOutTime float64
	frame                   float64
	fadeProgress            float64

	transitionDuration float64
	transitionProgress float64
	snapshot           *Snapshot
}

// NewLayer returns a stopped layer with unit weight and speed.
func NewLayer() *Layer { return &Layer{Weight: 1, Speed: 1} }

// Frame returns the layer's current (fractional) frame position.
func (l *Layer) Frame() float64 { return l.frame }

// Play starts a from frame 0 at full weight.
func (l *Layer) Play(a *Animation, loop bool) {
	l.Anim, l.frame, l.Loop, l.Weight, l.State = a, 0, loop, 1, Playing
}

// Stop halts playback and clears the layer's animation.
func (l *Layer) Stop() { l.State, l.Anim = Stopped, nil }

// Pause freezes frame advancement without clearing the animation.
func (l *Layer) Pause() {
	if l.State != Stopped {
		l.State = Paused
	}
}

// Resume continues a paused layer.
func (l *Layer) Resume() {
	if l.State == Paused {
		l.State = Playing
	}
}

// FadeIn starts a from frame 0, ramping its effective weight from 0 to 1
// over duration seconds.
func (l *Layer) FadeIn(a *Animation, loop bool, duration float64) {
	l.Anim, l.frame, l.Loop, l.Weight = a, 0, loop, 1
	l.fadeProgress, l.FadeInTime, l.State = 0, duration, FadingIn
}

// FadeOut ramps the layer's effective weight from 1 to 0 over duration
// seconds, stopping the layer once it reaches 0.
func (l *Layer) FadeOut(duration float64) {
	l.fadeProgress, l.FadeOutTime, l.State = 1, duration, FadingOut
}

// TransitionTo starts a from frame 0 at full weight, blending from snapshot
// toward the new animation's result over duration seconds.
func (l *Layer) TransitionTo(a *Animation, loop bool, duration float64, snapshot *Snapshot) {
	l.Anim, l.frame, l.Loop, l.Weight = a, 0, loop, 1
	l.snapshot, l.transitionDuration, l.transitionProgress, l.State = snapshot, duration, 0, Transitioning
}

// Update advances the layer's frame and fade/transition progress by dt
// seconds.
func (l *Layer) Update(dt float64) {
	switch l.State {
	case Stopped, Paused:
		return
	case FadingIn:
		if l.FadeInTime > 0 {
			l.fadeProgress += dt / l.FadeInTime
		} else {
			l.fadeProgress = 1
		}
		if l.fadeProgress >= 1 {
			l.fadeProgress, l.State = 1, Playing
		}
	case FadingOut:
		if l.FadeOutTime > 0 {
			l.fadeProgress -= dt / l.FadeOutTime
		} else {
			l.fadeProgress = 0
		}
		if l.fadeProgress <= 0 {
			l.fadeProgress, l.State = 0, Stopped
		}
	case Transitioning:
		if l.transitionDuration > 0 {
			l.transitionProgress += dt / l.transitionDuration
		} else {
			l.transitionProgress = 1
		}
		if l.transitionProgress >= 1 {
			l.transitionProgress, l.State = 1, Playing
		}
	}
	l.advanceFrame(dt)
}

// advanceFrame moves the layer's frame position by dt*speed*30 (the VMD
// frame rate), looping or clamping at the animation's max frame.
func (l *Layer) advanceFrame(dt float64) {
	if l.Anim == nil {
		return
	}
	max := float64(l.Anim.MaxFrame())
	l.frame += dt * l.Speed * 30
	if l.Loop {
		if max > 0 {
			l.frame = math.Mod(l.frame, max+1)
			if l.frame < 0 {
				l.frame += max + 1
			}
		} else {
			l.frame = 0
		}
	} else if l.frame > max {
		l.frame = max
	} else if l.frame < 0 {
		l.frame = 0
	}
}

// effectiveWeight folds fade progress into the layer's configured weight.
func (l *Layer) effectiveWeight() float64 {
	switch l.State {
	case Stopped:
		return 0
	case FadingIn, FadingOut:
		return l.Weight * l.fadeProgress
	default:
		return l.Weight
	}
}

// smoothstep is the classic 3t²−2t³ ease, used to shape transition blends.
func smoothstep(t float64) float64 {
	t = lin.Clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}

// Evaluate applies the layer's contribution for the current frame onto
// bones and morphs.
func (l *Layer) Evaluate(bones BoneSink, morphs MorphSink, cache *bezier.Cache) {
	if l.Anim == nil || l.State == Stopped {
		return
	}
	w := l.effectiveWeight()

	if l.State == Transitioning {
		l.Anim.evaluateWithWeight(l.frame, w, bones, morphs, cache)
		s := smoothstep(l.transitionProgress)
		blendSnapshot(l.snapshot, bones, morphs, s)
		return
	}

	if w > Epsilon || w < -Epsilon {
		l.Anim.evaluateWithWeight(l.frame, w, bones, morphs, cache)
	}
}

// blendSnapshot blends every captured snapshot entry toward the
// already-written animation result, with s the fraction of the animation
// result to keep (s=0 is pure snapshot, s=1 is pure animation result).
func blendSnapshot(snap *Snapshot, bones BoneSink, morphs MorphSink, s float64) {
	if snap == nil {
		return
	}
	for idx, pose := range snap.Bones {
		if idx < 0 || idx >= bones.BoneCount() {
			continue
		}
		cur := bones.AnimationTranslate(idx)
		t := lin.NewV3().Lerp(&pose.Translation, &cur, s)
		curRot := bones.AnimationRotate(idx)
		r := lin.NewQ().Slerp(&pose.Rotation, &curRot, s)
		bones.SetAnimationTranslate(idx, *t)
		bones.SetAnimationRotate(idx, *r)
	}
	for idx, w := range snap.Morphs {
		if idx < 0 || idx >= morphs.MorphCount() {
			continue
		}
		morphs.SetWeight(idx, lin.Lerp(w, morphs.Weight(idx), s))
	}
}

// Manager owns a fixed-size array of animation layers and drives their
// per-tick update and evaluation in order.
type Manager struct {
	Layers []*Layer
	cache  *bezier.Cache
}

// NewManager builds a manager with DefaultLayerCount stopped layers.
func NewManager(cache *bezier.Cache) *Manager {
	m := &Manager{cache: cache, Layers: make([]*Layer, DefaultLayerCount)}
	for i := range m.Layers {
		m.Layers[i] = NewLayer()
	}
	return m
}

// Update advances every layer by dt seconds.
func (m *Manager) Update(dt float64) {
	for _, l := range m.Layers {
		l.Update(dt)
	}
}

// Evaluate runs every active layer's contribution against bones and
// morphs, in layer order, so later layers blend on top of earlier ones.
func (m *Manager) Evaluate(bones BoneSink, morphs MorphSink) {
	for _, l := range m.Layers {
		l.Evaluate(bones, morphs, m.cache)
	}
}

// ActiveIKEnabledAt answers the IK-enabled query for boneIndex from the
// first non-stopped layer driving an animation, defaulting to enabled if
// no layer is active.
func (m *Manager) ActiveIKEnabledAt(boneIndex int) bool {
	for _, l := range m.Layers {
		if l.State == Stopped || l.Anim == nil {
			continue
		}
		return l.Anim.IKEnabledAt(boneIndex, uint32(math.Floor(l.frame)))
	}
	return true
}
