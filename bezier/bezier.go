// Package bezier precomputes and caches cubic Bezier sample tables used to
// interpolate VMD keyframe tracks. Curves are keyed on their raw [0,127]
// control point bytes so the same descriptor bytes always resolve to the
// same cached curve regardless of which bone or track requested it.
package bezier

import "sort"

// Point is the cubic Bezier curve's endpoint-anchored control form:
// the curve always starts at (0,0) and ends at (1,1), so only the two
// interior control points need to be carried.
type Point struct {
	X, Y float64
}

// Curve is a precomputed sample table approximating a cubic Bezier with
// endpoints (0,0) and (1,1) and interior control points C0, C1.
type Curve struct {
	C0, C1  Point
	samples []Point // sorted by X, len == n+1
}

// Linear reports whether the descriptor that produced this curve has both
// control points on the diagonal, i.e. the curve is the identity y = x.
func (c *Curve) Linear() bool {
	return c.C0.X == c.C0.Y && c.C1.X == c.C1.Y
}

// New builds a Curve by sampling the cubic at n+1 uniform parameter steps
// and sorting the result by X for lookup. n is clamped to at least 1.
func New(c0, c1 Point, n int) *Curve {
	if n < 1 {
		n = 1
	}
	samples := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		samples[i] = cubicAt(c0, c1, t)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].X < samples[j].X })
	return &Curve{C0: c0, C1: c1, samples: samples}
}

// cubicAt evaluates the cubic Bezier with endpoints (0,0),(1,1) and
// interior control points c0, c1 at parameter t.
func cubicAt(c0, c1 Point, t float64) Point {
	it := 1 - t
	it2 := it * it
	t2 := t * t
	t3 := t2 * t
	// B(t) = (1-t)^3 P0 + 3(1-t)^2 t C0 + 3(1-t) t^2 C1 + t^3 P1
	// P0 = (0,0), P1 = (1,1).
	x := 3*it2*t*c0.X + 3*it*t2*c1.X + t3
	y := 3*it2*t*c0.Y + 3*it*t2*c1.Y + t3
	return Point{X: x, Y: y}
}

// Samples returns the number of precomputed interior+endpoint samples.
func (c *Curve) Samples() int { return len(c.samples) - 1 }

// Value returns the curve's y for the given x in [0,1], linearly
// interpolating between the two bracketing samples. Ties (equal X) resolve
// to the earlier neighbor's Y, and out-of-range x clamps to the nearest end.
func (c *Curve) Value(x float64) float64 {
	samples := c.samples
	if len(samples) == 0 {
		return x
	}
	if x <= samples[0].X {
		return samples[0].Y
	}
	if x >= samples[len(samples)-1].X {
		return samples[len(samples)-1].Y
	}
	lo, hi := samples[0], samples[1]
	for _, p := range samples[2:] {
		if hi.X > x {
			break
		}
		lo, hi = hi, p
	}
	if lo.X == hi.X {
		return lo.Y
	}
	return lo.Y + (x-lo.X)*(hi.Y-lo.Y)/(hi.X-lo.X)
}
