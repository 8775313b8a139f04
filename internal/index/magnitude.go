package index

import "github.com/shmor3/simse/internal/vecmath"

// MagnitudeCache precomputes ‖embedding‖₂ per id so cosine search doesn't
// recompute it on every comparison.
type MagnitudeCache struct {
	values map[string]float64
}

func NewMagnitudeCache() *MagnitudeCache {
	return &MagnitudeCache{values: map[string]float64{}}
}

func (c *MagnitudeCache) Add(id string, embedding []float32) {
	c.values[id] = vecmath.Magnitude(embedding)
}

func (c *MagnitudeCache) Remove(id string) {
	delete(c.values, id)
}

func (c *MagnitudeCache) Get(id string) (float64, bool) {
	v, ok := c.values[id]
	return v, ok
}

func (c *MagnitudeCache) Len() int {
	return len(c.values)
}

func (c *MagnitudeCache) Clear() {
	c.values = map[string]float64{}
}
