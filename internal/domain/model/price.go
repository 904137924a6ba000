package model

import "time"

// PriceSet holds the three prices computed for a lot in one tick.
type PriceSet struct {
	Linear      float64
	Demand      float64
	Competitive float64
}

// PriceUpdate is emitted once per lot per tick. It is a value type and is
// never mutated after emission.
type PriceUpdate struct {
	LotID            string    `json:"lot_id"`
	Timestamp        time.Time `json:"timestamp"`
	LinearPrice      float64   `json:"linear_price"`
	DemandPrice      float64   `json:"demand_price"`
	CompetitivePrice float64   `json:"competitive_price"`
}

// NewPriceUpdate builds the emitted record for a lot.
func NewPriceUpdate(lotID string, ts time.Time, p PriceSet) PriceUpdate {
	return PriceUpdate{
		LotID:            lotID,
		Timestamp:        ts,
		LinearPrice:      p.Linear,
		DemandPrice:      p.Demand,
		CompetitivePrice: p.Competitive,
	}
}

// Prices returns the price triple carried by u.
func (u PriceUpdate) Prices() PriceSet {
	return PriceSet{Linear: u.LinearPrice, Demand: u.DemandPrice, Competitive: u.CompetitivePrice}
}
