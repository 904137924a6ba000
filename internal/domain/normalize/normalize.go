// Package normalize derives pricing features from raw readings.
//
// Min-max scaling depends on the population seen so far, so it is owned by
// the engine and refreshed once per tick before any lot is priced.
package normalize

import (
	"math"
	"sync"

	"github.com/okian/parkprice/internal/domain/model"
)

// Normalizer turns readings into Features.
type Normalizer interface {
	// Observe folds a tick's accepted readings into the scaling state.
	Observe(readings []model.LotReading)
	// Features scales r with the state as of the last Observe.
	Features(r model.LotReading) model.Features
}

// bounds tracks a running [min,max] range.
type bounds struct {
	min, max float64
	seen     bool
}

func (b *bounds) observe(x float64) {
	if !b.seen {
		b.min, b.max, b.seen = x, x, true
		return
	}
	b.min = math.Min(b.min, x)
	b.max = math.Max(b.max, x)
}

func (b bounds) scale(x float64) float64 {
	if !b.seen || b.max <= b.min {
		return 0
	}
	return clamp01((x - b.min) / (b.max - b.min))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// RunningMinMax scales occupancy and queue length by the min and max seen
// across every accepted reading so far.
type RunningMinMax struct {
	mu        sync.RWMutex
	occupancy bounds
	queue     bounds
}

// NewRunningMinMax creates an empty RunningMinMax.
func NewRunningMinMax() *RunningMinMax {
	return &RunningMinMax{}
}

// Observe widens the running ranges.
func (n *RunningMinMax) Observe(readings []model.LotReading) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range readings {
		n.occupancy.observe(float64(r.Occupancy))
		n.queue.observe(float64(r.QueueLength))
	}
}

// Features scales r against the running ranges.
func (n *RunningMinMax) Features(r model.LotReading) model.Features {
	n.mu.RLock()
	occ, queue := n.occupancy, n.queue
	n.mu.RUnlock()

	f := base(r)
	f.NormalizedOccupancy = occ.scale(float64(r.Occupancy))
	f.NormalizedQueue = queue.scale(float64(r.QueueLength))
	return f
}

// FixedRange scales against configured upper bounds with zero as the floor.
type FixedRange struct {
	occupancyMax float64
	queueMax     float64
}

// NewFixedRange creates a FixedRange. Non-positive bounds scale to zero.
func NewFixedRange(occupancyMax, queueMax float64) *FixedRange {
	return &FixedRange{occupancyMax: occupancyMax, queueMax: queueMax}
}

// Observe is a no-op; the range is fixed.
func (n *FixedRange) Observe([]model.LotReading) {}

// Features scales r against the fixed bounds.
func (n *FixedRange) Features(r model.LotReading) model.Features {
	f := base(r)
	f.NormalizedOccupancy = ratio(float64(r.Occupancy), n.occupancyMax)
	f.NormalizedQueue = ratio(float64(r.QueueLength), n.queueMax)
	return f
}

func ratio(x, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return clamp01(x / limit)
}

func base(r model.LotReading) model.Features {
	return model.Features{
		OccupancyRate: r.OccupancyRate(),
		TrafficLevel:  r.TrafficLevel,
		VehicleType:   r.VehicleType,
		IsSpecialDay:  r.IsSpecialDay,
	}
}

var (
	_ Normalizer = (*RunningMinMax)(nil)
	_ Normalizer = (*FixedRange)(nil)
)
