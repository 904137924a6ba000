package geo

import (
	"math"
	"sort"
	"sync"
)

const (
	defaultCellDeg = 0.01
	// MinCellDeg keeps cell coordinates well inside int range.
	MinCellDeg = 1e-6
	// boxMargin widens the search box to absorb the flat-box approximation.
	boxMargin = 1.01
)

type cell struct {
	lat int
	lon int
}

// GridIndex buckets points into fixed lat/lon cells so a query only visits
// cells that can intersect the search radius. Results match LinearIndex.
type GridIndex struct {
	mu      sync.RWMutex
	cellDeg float64
	points  map[string]Point
	cells   map[cell]map[string]struct{}
}

// GridOption configures a GridIndex.
type GridOption func(*GridIndex)

// WithCellSize sets the cell edge in degrees.
func WithCellSize(deg float64) GridOption {
	return func(g *GridIndex) {
		if deg >= MinCellDeg {
			g.cellDeg = deg
		}
	}
}

// NewGridIndex creates an empty GridIndex.
func NewGridIndex(opts ...GridOption) *GridIndex {
	g := &GridIndex{
		cellDeg: defaultCellDeg,
		points:  make(map[string]Point),
		cells:   make(map[cell]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GridIndex) cellOf(p Point) cell {
	return cell{
		lat: int(math.Floor(p.Lat / g.cellDeg)),
		lon: int(math.Floor(p.Lon / g.cellDeg)),
	}
}

// Upsert registers or moves id.
func (g *GridIndex) Upsert(id string, p Point) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.points[id]; ok {
		g.unlink(id, g.cellOf(old))
	}
	g.points[id] = p
	c := g.cellOf(p)
	bucket, ok := g.cells[c]
	if !ok {
		bucket = make(map[string]struct{})
		g.cells[c] = bucket
	}
	bucket[id] = struct{}{}
}

// Remove forgets id.
func (g *GridIndex) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.points[id]; ok {
		g.unlink(id, g.cellOf(old))
		delete(g.points, id)
	}
}

// unlink must be called with g.mu held.
func (g *GridIndex) unlink(id string, c cell) {
	bucket := g.cells[c]
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(g.cells, c)
	}
}

// Within returns ids within radiusKm of id.
func (g *GridIndex) Within(id string, radiusKm float64) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	origin, ok := g.points[id]
	if !ok {
		return nil
	}

	candidates, bounded := g.candidates(origin, radiusKm)
	if !bounded {
		candidates = g.points
	}

	var out []string
	for other, p := range candidates {
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

// candidates collects points from the cells overlapping the radius bounding
// box. It reports false when the box touches a pole or the antimeridian, in
// which case the caller scans everything.
func (g *GridIndex) candidates(origin Point, radiusKm float64) (map[string]Point, bool) {
	dLat := radiusKm / kmPerDegree * boxMargin
	minLat, maxLat := origin.Lat-dLat, origin.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return nil, false
	}
	widest := math.Max(math.Abs(minLat), math.Abs(maxLat))
	dLon := dLat / math.Cos(radians(widest))
	minLon, maxLon := origin.Lon-dLon, origin.Lon+dLon
	if minLon < -180 || maxLon > 180 {
		return nil, false
	}

	lo := g.cellOf(Point{Lat: minLat, Lon: minLon})
	hi := g.cellOf(Point{Lat: maxLat, Lon: maxLon})
	// Counted in float64: the cell product overflows int for tiny cells.
	if float64(hi.lat-lo.lat+1)*float64(hi.lon-lo.lon+1) > float64(len(g.cells)) {
		return nil, false
	}

	out := make(map[string]Point)
	for i := lo.lat; i <= hi.lat; i++ {
		for j := lo.lon; j <= hi.lon; j++ {
			for other := range g.cells[cell{lat: i, lon: j}] {
				out[other] = g.points[other]
			}
		}
	}
	return out, true
}

// Len returns the number of registered ids.
func (g *GridIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.points)
}

var _ Index = (*GridIndex)(nil)
