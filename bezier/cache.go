package bezier

import "sync"

// Key identifies a curve by its raw VMD control point bytes, each in
// [0,127]. Descriptors with identical bytes always resolve to the same
// cached Curve.
type Key struct {
	C0X, C0Y, C1X, C1Y uint8
}

// Linear reports whether the key describes a diagonal (identity) curve,
// i.e. both control points lie on y == x.
func (k Key) Linear() bool { return k.C0X == k.C0Y && k.C1X == k.C1Y }

// point converts the key's [0,127] bytes to normalized [0,1] control points.
func (k Key) point() (c0, c1 Point) {
	const scale = 1.0 / 127.0
	c0 = Point{X: float64(k.C0X) * scale, Y: float64(k.C0Y) * scale}
	c1 = Point{X: float64(k.C1X) * scale, Y: float64(k.C1Y) * scale}
	return c0, c1
}

// Cache is a read-mostly table of precomputed Curves keyed by control
// point bytes. It is safe for concurrent use: readers take the cache's
// RLock, and a writer only runs when no cached entry at sufficient sample
// density exists, re-checking under the write lock in case another writer
// raced ahead. Two writers racing on the same key produce equal curves, so
// whichever insert wins is correct either way.
type Cache struct {
	mu      sync.RWMutex
	curves  map[Key]*Curve
	samples int // default sample density for Get
}

// NewCache creates an empty cache that builds curves with defaultSamples
// samples unless a denser request overrides it.
func NewCache(defaultSamples int) *Cache {
	if defaultSamples < 1 {
		defaultSamples = 1
	}
	return &Cache{curves: make(map[Key]*Curve), samples: defaultSamples}
}

// Get returns the cached curve for key, building and inserting it at the
// cache's default sample density if absent or too sparse.
func (c *Cache) Get(key Key) *Curve {
	return c.GetN(key, c.samples)
}

// GetN returns the cached curve for key at a specific sample count,
// rebuilding the cache entry if the cached curve is less dense than n.
func (c *Cache) GetN(key Key, n int) *Curve {
	if n < 1 {
		n = c.samples
	}
	c.mu.RLock()
	curve, ok := c.curves[key]
	c.mu.RUnlock()
	if ok && curve.Samples() >= n {
		return curve
	}

	c0, c1 := key.point()
	built := New(c0, c1, n)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.curves[key]; ok && existing.Samples() >= n {
		return existing // another writer already installed a sufficient entry.
	}
	c.curves[key] = built
	return built
}

// Len returns the number of distinct curves currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.curves)
}
