package motion

import (
	"math"
	"testing"

	"github.com/sorairo/mmdrt/bezier"
	"github.com/sorairo/mmdrt/math/lin"
)

type fakeBones struct {
	translate map[int]lin.V3
	rotate    map[int]lin.Q
	count     int
}

func newFakeBones(n int) *fakeBones {
	b := &fakeBones{translate: map[int]lin.V3{}, rotate: map[int]lin.Q{}, count: n}
	for i := 0; i < n; i++ {
		b.rotate[i] = *lin.NewQI()
	}
	return b
}

func (b *fakeBones) BoneCount() int { return b.count }
func (b *fakeBones) AddAnimationTranslate(i int, delta *lin.V3) {
	t := b.translate[i]
	t.X += delta.X
	t.Y += delta.Y
	t.Z += delta.Z
	b.translate[i] = t
}
func (b *fakeBones) MultAnimationRotate(i int, delta *lin.Q) {
	r := b.rotate[i]
	b.rotate[i] = *lin.NewQ().Mult(&r, delta)
}
func (b *fakeBones) SetAnimationTranslate(i int, t lin.V3) { b.translate[i] = t }
func (b *fakeBones) SetAnimationRotate(i int, r lin.Q)     { b.rotate[i] = r }
func (b *fakeBones) AnimationTranslate(i int) lin.V3       { return b.translate[i] }
func (b *fakeBones) AnimationRotate(i int) lin.Q           { return b.rotate[i] }

type fakeMorphs struct{ w map[int]float64 }

func newFakeMorphs(n int) *fakeMorphs {
	m := &fakeMorphs{w: map[int]float64{}}
	for i := 0; i < n; i++ {
		m.w[i] = 0
	}
	return m
}
func (m *fakeMorphs) MorphCount() int             { return len(m.w) }
func (m *fakeMorphs) Weight(i int) float64        { return m.w[i] }
func (m *fakeMorphs) SetWeight(i int, w float64)  { m.w[i] = w }

func straightLineAnim() *Animation {
	track := NewBoneTrack([]BoneKeyframe{
		{Frame: 0, Translation: lin.V3{X: 0}},
		{Frame: 30, Translation: lin.V3{X: 3}},
	})
	return NewAnimation("walk", map[int]*BoneTrack{0: track}, nil, nil)
}

func TestPlayingLayerAdvancesFrameAtThirtyFps(t *testing.T) {
	l := NewLayer()
	anim := straightLineAnim()
	l.Play(anim, false)
	l.Update(1.0) // 1 second at speed 1 => 30 frames.
	if math.Abs(l.Frame()-30) > 1e-9 {
		t.Errorf("expected frame 30 after 1s, got %v", l.Frame())
	}
}

func TestLoopingLayerWrapsAtMaxFrame(t *testing.T) {
	l := NewLayer()
	anim := straightLineAnim()
	l.Play(anim, true)
	l.Update(31.0 / 30.0) // slightly past one loop.
	if l.Frame() < 0 || l.Frame() > 31 {
		t.Errorf("expected wrapped frame in [0,31], got %v", l.Frame())
	}
}

func TestNonLoopingLayerClampsAtMaxFrame(t *testing.T) {
	l := NewLayer()
	anim := straightLineAnim()
	l.Play(anim, false)
	l.Update(10.0) // way past max frame.
	if l.Frame() != 30 {
		t.Errorf("expected clamp at max frame 30, got %v", l.Frame())
	}
}

func TestEvaluatePlayingLayerWritesBoneTranslate(t *testing.T) {
	cache := bezier.NewCache(32)
	l := NewLayer()
	anim := straightLineAnim()
	l.Play(anim, false)
	l.Update(0.5) // 15 frames => halfway => X=1.5

	bones := newFakeBones(1)
	morphs := newFakeMorphs(0)
	l.Evaluate(bones, morphs, cache)

	if got := bones.AnimationTranslate(0).X; math.Abs(got-1.5) > 1e-6 {
		t.Errorf("expected bone 0 translate.X ~= 1.5, got %v", got)
	}
}

func TestFadeInRampsEffectiveWeight(t *testing.T) {
	l := NewLayer()
	anim := straightLineAnim()
	l.FadeIn(anim, false, 2.0)
	l.Update(1.0) // halfway through fade-in.
	if got := l.effectiveWeight(); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("expected effective weight ~0.5 halfway through fade-in, got %v", got)
	}
}

func TestFadeOutReachesStopped(t *testing.T) {
	l := NewLayer()
	anim := straightLineAnim()
	l.Play(anim, false)
	l.FadeOut(1.0)
	l.Update(1.5)
	if l.State != Stopped {
		t.Errorf("expected layer to reach Stopped after fade-out completes, got state %v", l.State)
	}
}

func TestTransitionBlendsSnapshotTowardAnimationResult(t *testing.T) {
	cache := bezier.NewCache(32)
	bones := newFakeBones(1)
	morphs := newFakeMorphs(0)

	snap := &Snapshot{Bones: map[int]BonePose{0: {Translation: lin.V3{X: 10}, Rotation: *lin.NewQI()}}}

	l := NewLayer()
	anim := straightLineAnim()
	l.TransitionTo(anim, false, 1.0, snap)
	l.Update(0.0) // progress 0: pure snapshot.

	l.Evaluate(bones, morphs, cache)
	if got := bones.AnimationTranslate(0).X; math.Abs(got-10) > 1e-6 {
		t.Errorf("expected pure snapshot (X=10) at progress 0, got %v", got)
	}
}

func TestManagerEvaluatesLayersInOrderAdditively(t *testing.T) {
	cache := bezier.NewCache(32)
	m := &Manager{cache: cache, Layers: []*Layer{NewLayer(), NewLayer()}}

	animA := straightLineAnim()
	m.Layers[0].Play(animA, false)
	m.Layers[0].Update(1.0) // frame 30, X=3, weight 1.

	animB := straightLineAnim()
	m.Layers[1].Play(animB, false)
	m.Layers[1].Update(0) // frame 0, X=0, weight 1.

	bones := newFakeBones(1)
	morphs := newFakeMorphs(0)
	m.Evaluate(bones, morphs)

	if got := bones.AnimationTranslate(0).X; math.Abs(got-3) > 1e-6 {
		t.Errorf("expected accumulated translate X=3 (3 + 0), got %v", got)
	}
}
