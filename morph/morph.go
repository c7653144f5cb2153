// Package morph implements the MMD morph engine: vertex, bone, UV, material,
// group and flip morph composition applied once per tick against a fixed
// set of deformation targets.
package morph

import (
	"github.com/sorairo/mmdrt/math/lin"
	"github.com/tbogdala/groggy"
)

// Epsilon is the minimum |weight| a morph must carry to be dispatched.
const Epsilon = 1e-3

// maxGroupDepth bounds group/flip recursion so a cyclic morph graph
// terminates instead of recursing forever.
const maxGroupDepth = 16

// Kind tags the variant a Morph carries.
type Kind int

const (
	KindVertex Kind = iota
	KindBone
	KindUV
	KindAdditionalUV1
	KindAdditionalUV2
	KindAdditionalUV3
	KindAdditionalUV4
	KindMaterial
	KindGroup
	KindFlip
	KindImpulse
)

// VertexOffset moves one vertex by Delta, scaled by the morph's weight.
type VertexOffset struct {
	VertexIndex int
	Delta       lin.V3
}

// BoneOffset nudges one bone's animated pose by (DeltaT, DeltaR), scaled by
// the morph's weight.
type BoneOffset struct {
	BoneIndex int
	DeltaT    lin.V3
	DeltaR    lin.Q
}

// UVOffset accumulates a (Δu, Δv) pair into one vertex's UV delta buffer.
type UVOffset struct {
	VertexIndex int
	DU, DV      float64
}

// MaterialOp selects how a MaterialOffset combines with the running
// per-material accumulator.
type MaterialOp int

const (
	OpMultiply MaterialOp = iota
	OpAdd
)

// MaterialValues is the nine-way set of tintable material properties a
// material morph can offset.
type MaterialValues struct {
	DiffuseR, DiffuseG, DiffuseB, DiffuseA float64
	SpecularR, SpecularG, SpecularB        float64
	SpecularStrength                       float64
	AmbientR, AmbientG, AmbientB           float64
	EdgeR, EdgeG, EdgeB, EdgeA             float64
	EdgeSize                               float64
	TexTintR, TexTintG, TexTintB, TexTintA float64
	EnvTintR, EnvTintG, EnvTintB, EnvTintA  float64
	ToonTintR, ToonTintG, ToonTintB, ToonTintA float64
}

// MaterialOffset targets one material (or all, when MaterialIndex == -1)
// with an operation and the nine-way value set.
type MaterialOffset struct {
	MaterialIndex int
	Op            MaterialOp
	Values        MaterialValues
}

// GroupChild is one entry of a Group morph: another morph, by index, and
// the fraction of the group's own weight it receives.
type GroupChild struct {
	MorphIndex int
	Influence  float64
}

// Morph is a single named deformation channel. Exactly one of the offset
// slices/children is populated, per Kind.
type Morph struct {
	Name   string
	Kind   Kind
	Weight float64

	VertexOffsets   []VertexOffset
	BoneOffsets     []BoneOffset
	UVOffsets       []UVOffset
	MaterialOffsets []MaterialOffset
	Children        []GroupChild // Group and Flip morphs.
}

// BoneTarget is the subset of a bone's animation inputs a bone morph writes.
// Implemented by the skeleton package's Bone type.
type BoneTarget interface {
	AddAnimationTranslate(delta *lin.V3)
	MultAnimationRotate(delta *lin.Q)
}

// MaterialAccumulator is the running (mul, add) pair for one material slot,
// reset to (1, 0) at the start of every tick and combined with a material's
// base values at render time as final = base*mul + add.
type MaterialAccumulator struct {
	MulR, MulG, MulB, MulA                 float64
	MulSpecR, MulSpecG, MulSpecB           float64
	MulSpecStrength                        float64
	MulAmbR, MulAmbG, MulAmbB              float64
	MulEdgeR, MulEdgeG, MulEdgeB, MulEdgeA float64
	MulEdgeSize                            float64
	MulTexR, MulTexG, MulTexB, MulTexA     float64
	MulEnvR, MulEnvG, MulEnvB, MulEnvA     float64
	MulToonR, MulToonG, MulToonB, MulToonA float64

	AddR, AddG, AddB, AddA                 float64
	AddSpecR, AddSpecG, AddSpecB           float64
	AddSpecStrength                        float64
	AddAmbR, AddAmbG, AddAmbB              float64
	AddEdgeR, AddEdgeG, AddEdgeB, AddEdgeA float64
	AddEdgeSize                            float64
	AddTexR, AddTexG, AddTexB, AddTexA     float64
	AddEnvR, AddEnvG, AddEnvB, AddEnvA     float64
	AddToonR, AddToonG, AddToonB, AddToonA float64
}

func identityAccumulator() MaterialAccumulator {
	return MaterialAccumulator{
		MulR: 1, MulG: 1, MulB: 1, MulA: 1,
		MulSpecR: 1, MulSpecG: 1, MulSpecB: 1, MulSpecStrength: 1,
		MulAmbR: 1, MulAmbG: 1, MulAmbB: 1,
		MulEdgeR: 1, MulEdgeG: 1, MulEdgeB: 1, MulEdgeA: 1, MulEdgeSize: 1,
		MulTexR: 1, MulTexG: 1, MulTexB: 1, MulTexA: 1,
		MulEnvR: 1, MulEnvG: 1, MulEnvB: 1, MulEnvA: 1,
		MulToonR: 1, MulToonG: 1, MulToonB: 1, MulToonA: 1,
	}
}

// UVDelta is the accumulated (u,v) offset for one vertex from UV and
// AdditionalUV1 morphs; AdditionalUV2-4 and Impulse are parsed but unused.
type UVDelta struct {
	DU, DV float64
}

// Engine applies a model's morphs into a vertex position buffer, a per
// vertex UV delta buffer, and a per-material accumulator table, in the
// fixed order the MMD reference renderer expects.
type Engine struct {
	Morphs []Morph

	Positions   []lin.V3 // working vertex buffer, overwritten base + deltas.
	basePos     []lin.V3
	UVDeltas    []UVDelta
	Materials   []MaterialAccumulator

	// CycleTruncations counts group/flip recursions that hit maxGroupDepth,
	// surfaced as a debug counter rather than an error.
	CycleTruncations int
	// IndexOutOfRange counts morph, vertex, and bone indices rejected by
	// SetWeight or dispatch since the engine was built, plus pose morph
	// names that Model.ApplyPose could not resolve.
	IndexOutOfRange int
}

// NewEngine builds an engine over basePositions (vertex bind positions,
// copied so the caller's slice is never mutated) and nMaterials material
// slots.
func NewEngine(morphs []Morph, basePositions []lin.V3, nMaterials int) *Engine {
	e := &Engine{
		Morphs:    morphs,
		basePos:   append([]lin.V3(nil), basePositions...),
		Positions: make([]lin.V3, len(basePositions)),
		UVDeltas:  make([]UVDelta, len(basePositions)),
		Materials: make([]MaterialAccumulator, nMaterials),
	}
	return e
}

// MorphCount returns the number of morphs the engine holds, satisfying
// motion.MorphSink so animation layers can drive morph weights directly.
func (e *Engine) MorphCount() int { return len(e.Morphs) }

// MorphIndex returns the index of the morph named name, or -1 if no morph
// carries that name. Used to resolve a loaded pose's named weights against
// this engine's morph table, mirroring motion.Pose.BoneIndex.
func (e *Engine) MorphIndex(name string) int {
	for i := range e.Morphs {
		if e.Morphs[i].Name == name {
			return i
		}
	}
	return -1
}

// Weight returns the current weight of the morph at index i, or 0 if i is
// out of range (an animation referencing an unknown morph is silently
// skipped, per the index-out-of-range error kind).
func (e *Engine) Weight(i int) float64 {
	if i < 0 || i >= len(e.Morphs) {
		return 0
	}
	return e.Morphs[i].Weight
}

// SetWeight sets the weight of the morph at index i; out-of-range indices
// are silently ignored.
func (e *Engine) SetWeight(i int, w float64) {
	if i < 0 || i >= len(e.Morphs) {
		e.IndexOutOfRange++
		return
	}
	e.Morphs[i].Weight = w
}

// Apply runs the per-tick morph pipeline: reset accumulators, then dispatch
// every morph whose |weight| exceeds Epsilon. bones receives bone-morph
// writes; it may be nil if the model has no bone morphs.
func (e *Engine) Apply(bones []BoneTarget) {
	for i := range e.Materials {
		e.Materials[i] = identityAccumulator()
	}
	for i := range e.UVDeltas {
		e.UVDeltas[i] = UVDelta{}
	}
	copy(e.Positions, e.basePos)

	for i := range e.Morphs {
		m := &e.Morphs[i]
		if m.Weight > -Epsilon && m.Weight < Epsilon {
			continue
		}
		e.dispatch(m.Kind, m, m.Weight, bones, 0)
	}
}

// dispatch applies one morph (or, for Group/Flip, one of its children) at
// effective weight w. depth bounds Group/Flip recursion.
func (e *Engine) dispatch(kind Kind, m *Morph, w float64, bones []BoneTarget, depth int) {
	switch kind {
	case KindVertex:
		for _, off := range m.VertexOffsets {
			if off.VertexIndex < 0 || off.VertexIndex >= len(e.Positions) {
				e.IndexOutOfRange++
				continue
			}
			p := &e.Positions[off.VertexIndex]
			p.X += off.Delta.X * w
			p.Y += off.Delta.Y * w
			p.Z += off.Delta.Z * w
		}
	case KindBone:
		if bones == nil {
			return
		}
		for _, off := range m.BoneOffsets {
			if off.BoneIndex < 0 || off.BoneIndex >= len(bones) {
				e.IndexOutOfRange++
				continue
			}
			delta := lin.NewV3().Scale(&off.DeltaT, w)
			bones[off.BoneIndex].AddAnimationTranslate(delta)
			bones[off.BoneIndex].MultAnimationRotate(weightedRotation(&off.DeltaR, w))
		}
	case KindUV, KindAdditionalUV1:
		for _, off := range m.UVOffsets {
			if off.VertexIndex < 0 || off.VertexIndex >= len(e.UVDeltas) {
				continue
			}
			d := &e.UVDeltas[off.VertexIndex]
			d.DU += off.DU * w
			d.DV += off.DV * w
		}
	case KindAdditionalUV2, KindAdditionalUV3, KindAdditionalUV4, KindImpulse:
		// accepted but not applied.
	case KindMaterial:
		e.applyMaterial(m, w)
	case KindGroup:
		if depth >= maxGroupDepth {
			e.CycleTruncations++
			groggy.Logsf("DEBUG", "morph group %q recursion truncated at depth %d", m.Name, depth)
			return
		}
		for _, child := range m.Children {
			if child.MorphIndex == selfIndex(e, m) || child.MorphIndex < 0 || child.MorphIndex >= len(e.Morphs) {
				continue
			}
			cm := &e.Morphs[child.MorphIndex]
			e.dispatch(cm.Kind, cm, w*child.Influence, bones, depth+1)
		}
	case KindFlip:
		if depth >= maxGroupDepth {
			e.CycleTruncations++
			groggy.Logsf("DEBUG", "morph flip %q recursion truncated at depth %d", m.Name, depth)
			return
		}
		if len(m.Children) == 0 {
			return
		}
		clamped := lin.Clamp(w, 0, 1)
		idx := int(clamped * float64(len(m.Children)))
		if idx >= len(m.Children) {
			idx = len(m.Children) - 1
		}
		child := m.Children[idx]
		if child.MorphIndex == selfIndex(e, m) || child.MorphIndex < 0 || child.MorphIndex >= len(e.Morphs) {
			return
		}
		cm := &e.Morphs[child.MorphIndex]
		e.dispatch(cm.Kind, cm, child.Influence, bones, depth+1)
	}
}

// selfIndex finds m's own index in e.Morphs so group/flip dispatch can skip
// direct self-reference; ring cycles are still caught by the depth limit.
func selfIndex(e *Engine, m *Morph) int {
	for i := range e.Morphs {
		if &e.Morphs[i] == m {
			return i
		}
	}
	return -1
}

// weightedRotation returns slerp(identity, delta, w) via the small-angle
// quaternion formula used by the MMD reference: scale the vector part by w
// and renormalize, flipping delta's sign first if it would take the long
// arc (delta.W < 0).
func weightedRotation(delta *lin.Q, w float64) *lin.Q {
	dx, dy, dz, dw := delta.X, delta.Y, delta.Z, delta.W
	if dw < 0 {
		dx, dy, dz, dw = -dx, -dy, -dz, -dw
	}
	q := lin.NewQ().SetS(dx*w, dy*w, dz*w, 1-(1-dw)*w)
	return q.Unit()
}

func (e *Engine) applyMaterial(m *Morph, w float64) {
	for _, off := range m.MaterialOffsets {
		if off.MaterialIndex == -1 {
			for i := range e.Materials {
				applyMaterialOffset(&e.Materials[i], off, w)
			}
			continue
		}
		if off.MaterialIndex < 0 || off.MaterialIndex >= len(e.Materials) {
			continue
		}
		applyMaterialOffset(&e.Materials[off.MaterialIndex], off, w)
	}
}

func applyMaterialOffset(acc *MaterialAccumulator, off MaterialOffset, w float64) {
	v := off.Values
	if off.Op == OpMultiply {
		acc.MulR *= lin.Lerp(1, v.DiffuseR, w)
		acc.MulG *= lin.Lerp(1, v.DiffuseG, w)
		acc.MulB *= lin.Lerp(1, v.DiffuseB, w)
		acc.MulA *= lin.Lerp(1, v.DiffuseA, w)
		acc.MulSpecR *= lin.Lerp(1, v.SpecularR, w)
		acc.MulSpecG *= lin.Lerp(1, v.SpecularG, w)
		acc.MulSpecB *= lin.Lerp(1, v.SpecularB, w)
		acc.MulSpecStrength *= lin.Lerp(1, v.SpecularStrength, w)
		acc.MulAmbR *= lin.Lerp(1, v.AmbientR, w)
		acc.MulAmbG *= lin.Lerp(1, v.AmbientG, w)
		acc.MulAmbB *= lin.Lerp(1, v.AmbientB, w)
		acc.MulEdgeR *= lin.Lerp(1, v.EdgeR, w)
		acc.MulEdgeG *= lin.Lerp(1, v.EdgeG, w)
		acc.MulEdgeB *= lin.Lerp(1, v.EdgeB, w)
		acc.MulEdgeA *= lin.Lerp(1, v.EdgeA, w)
		acc.MulEdgeSize *= lin.Lerp(1, v.EdgeSize, w)
		acc.MulTexR *= lin.Lerp(1, v.TexTintR, w)
		acc.MulTexG *= lin.Lerp(1, v.TexTintG, w)
		acc.MulTexB *= lin.Lerp(1, v.TexTintB, w)
		acc.MulTexA *= lin.Lerp(1, v.TexTintA, w)
		acc.MulEnvR *= lin.Lerp(1, v.EnvTintR, w)
		acc.MulEnvG *= lin.Lerp(1, v.EnvTintG, w)
		acc.MulEnvB *= lin.Lerp(1, v.EnvTintB, w)
		acc.MulEnvA *= lin.Lerp(1, v.EnvTintA, w)
		acc.MulToonR *= lin.Lerp(1, v.ToonTintR, w)
		acc.MulToonG *= lin.Lerp(1, v.ToonTintG, w)
		acc.MulToonB *= lin.Lerp(1, v.ToonTintB, w)
		acc.MulToonA *= lin.Lerp(1, v.ToonTintA, w)
		return
	}
	acc.AddR += v.DiffuseR * w
	acc.AddG += v.DiffuseG * w
	acc.AddB += v.DiffuseB * w
	acc.AddA += v.DiffuseA * w
	acc.AddSpecR += v.SpecularR * w
	acc.AddSpecG += v.SpecularG * w
	acc.AddSpecB += v.SpecularB * w
	acc.AddSpecStrength += v.SpecularStrength * w
	acc.AddAmbR += v.AmbientR * w
	acc.AddAmbG += v.AmbientG * w
	acc.AddAmbB += v.AmbientB * w
	acc.AddEdgeR += v.EdgeR * w
	acc.AddEdgeG += v.EdgeG * w
	acc.AddEdgeB += v.EdgeB * w
	acc.AddEdgeA += v.EdgeA * w
	acc.AddEdgeSize += v.EdgeSize * w
	acc.AddTexR += v.TexTintR * w
	acc.AddTexG += v.TexTintG * w
	acc.AddTexB += v.TexTintB * w
	acc.AddTexA += v.TexTintA * w
	acc.AddEnvR += v.EnvTintR * w
	acc.AddEnvG += v.EnvTintG * w
	acc.AddEnvB += v.EnvTintB * w
	acc.AddEnvA += v.EnvTintA * w
	acc.AddToonR += v.ToonTintR * w
	acc.AddToonG += v.ToonTintG * w
	acc.AddToonB += v.ToonTintB * w
	acc.AddToonA += v.ToonTintA * w
}
