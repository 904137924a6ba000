package geo

import (
	"sort"
	"sync"
)

// Index resolves neighbors of a registered id. Implementations are safe for
// concurrent readers; writers are serialized by the caller's tick.
type Index interface {
	// Upsert registers or moves id to p.
	Upsert(id string, p Point)
	// Remove forgets id. Unknown ids are ignored.
	Remove(id string)
	// Within returns the other ids whose distance to id is <= radiusKm,
	// sorted ascending. Unknown ids yield nil.
	Within(id string, radiusKm float64) []string
	// Len returns the number of registered ids.
	Len() int
}

// LinearIndex scans every registered point on each query.
type LinearIndex struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewLinearIndex creates an empty LinearIndex.
func NewLinearIndex() *LinearIndex {
	return &LinearIndex{points: make(map[string]Point)}
}

// Upsert registers or moves id.
func (x *LinearIndex) Upsert(id string, p Point) {
	x.mu.Lock()
	x.points[id] = p
	x.mu.Unlock()
}

// Remove forgets id.
func (x *LinearIndex) Remove(id string) {
	x.mu.Lock()
	delete(x.points, id)
	x.mu.Unlock()
}

// Within returns ids within radiusKm of id.
func (x *LinearIndex) Within(id string, radiusKm float64) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	origin, ok := x.points[id]
	if !ok {
		return nil
	}
	var out []string
	for other, p := range x.points {
		if other == id {
			continue
		}
		if Distance(origin, p) <= radiusKm {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered ids.
func (x *LinearIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.points)
}

var _ Index = (*LinearIndex)(nil)
