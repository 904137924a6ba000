package pricing

import (
	"gonum.org/v1/gonum/stat"

	"github.com/okian/parkprice/internal/domain/geo"
)

const (
	// CongestionThreshold is the neighbor occupancy above which a lot may
	// follow pricier neighbors upward.
	CongestionThreshold = 0.9
	// CompetitiveStep bounds the per-tick nudge.
	CompetitiveStep = 1.0
)

// Adjustment describes how Competitive moved the demand price.
type Adjustment string

// Possible adjustments.
const (
	AdjustNone Adjustment = "none"
	AdjustUp   Adjustment = "up"
	AdjustDown Adjustment = "down"
)

// Neighbor is the frozen view of another lot used by Competitive.
type Neighbor struct {
	DemandPrice   float64
	OccupancyRate float64
}

// Snapshot maps lot ids to their demand-phase output for one tick. It must
// not be written once the competitive phase starts.
type Snapshot map[string]Neighbor

// Neighbors resolves the lots within p.RadiusKm of id and looks them up in
// snap. Ids missing from snap are skipped.
func Neighbors(idx geo.Index, id string, snap Snapshot, p Params) []Neighbor {
	ids := idx.Within(id, p.RadiusKm)
	out := make([]Neighbor, 0, len(ids))
	for _, other := range ids {
		if n, ok := snap[other]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Competitive nudges own by at most CompetitiveStep toward its neighbors:
// up when they are congested and pricier, down when they are cheaper.
func Competitive(own float64, neighbors []Neighbor, p Params) (float64, Adjustment) {
	if len(neighbors) == 0 {
		return own, AdjustNone
	}
	prices := make([]float64, len(neighbors))
	occupancy := make([]float64, len(neighbors))
	for i, n := range neighbors {
		prices[i] = n.DemandPrice
		occupancy[i] = n.OccupancyRate
	}
	avgPrice := stat.Mean(prices, nil)
	avgOcc := stat.Mean(occupancy, nil)

	price := own
	switch {
	case avgOcc > CongestionThreshold && avgPrice > own:
		price = Round2(min(own+CompetitiveStep, p.MaxPrice))
	case avgPrice < own:
		price = Round2(max(own-CompetitiveStep, p.MinPrice))
	}
	switch {
	case price > own:
		return price, AdjustUp
	case price < own:
		return price, AdjustDown
	}
	return own, AdjustNone
}
