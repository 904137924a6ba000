package pricing

import (
	"math"

	"github.com/okian/parkprice/internal/domain/model"
)

// Demand score weights. They sum to 1 so a fully saturated lot scores 1.
const (
	WeightOccupancy  = 0.4
	WeightQueue      = 0.3
	WeightTraffic    = 0.1
	WeightVehicle    = 0.1
	WeightSpecialDay = 0.1
)

const (
	maxTrafficCode = 2.0
	maxVehicleCode = 1.5
)

// TrafficCode encodes low/medium/high as 0/1/2. Unknown levels encode as 0;
// callers validate before pricing.
func TrafficCode(t model.TrafficLevel) float64 {
	switch t {
	case model.TrafficMedium:
		return 1
	case model.TrafficHigh:
		return 2
	}
	return 0
}

// VehicleCode encodes bike/car/truck as 0.5/1.0/1.5. Unknown types encode
// as 0; callers validate before pricing.
func VehicleCode(v model.VehicleType) float64 {
	switch v {
	case model.VehicleBike:
		return 0.5
	case model.VehicleCar:
		return 1.0
	case model.VehicleTruck:
		return 1.5
	}
	return 0
}

// DemandScore combines the features into a score in [0,1].
func DemandScore(f model.Features) float64 {
	special := 0.0
	if f.IsSpecialDay {
		special = 1
	}
	score := WeightOccupancy*f.NormalizedOccupancy +
		WeightQueue*f.NormalizedQueue +
		WeightTraffic*TrafficCode(f.TrafficLevel)/maxTrafficCode +
		WeightVehicle*VehicleCode(f.VehicleType)/maxVehicleCode +
		WeightSpecialDay*special
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}

// Demand prices a lot as base*(1+lambda*score), clamped to the price band.
func Demand(f model.Features, p Params) float64 {
	return Round2(p.clamp(p.BasePrice * (1 + p.Lambda*DemandScore(f))))
}
