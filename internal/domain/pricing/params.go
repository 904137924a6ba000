// Package pricing holds the pure pricing policies: capacity-linear,
// demand-weighted and neighbor-competitive.
package pricing

import (
	"fmt"
	"math"
)

// Default policy parameters.
const (
	DefaultBasePrice = 10.0
	DefaultAlpha     = 5.0
	DefaultLambda    = 0.5
	DefaultRadiusKm  = 1.0
	DefaultMinPrice  = 5.0
	DefaultMaxPrice  = 20.0
)

// Params is the explicit policy configuration, built once and shared by
// every tick.
type Params struct {
	BasePrice float64
	Alpha     float64 // linear occupancy slope
	Lambda    float64 // demand multiplier
	RadiusKm  float64 // competitive neighborhood
	MinPrice  float64
	MaxPrice  float64
}

// DefaultParams returns the reference configuration.
func DefaultParams() Params {
	return Params{
		BasePrice: DefaultBasePrice,
		Alpha:     DefaultAlpha,
		Lambda:    DefaultLambda,
		RadiusKm:  DefaultRadiusKm,
		MinPrice:  DefaultMinPrice,
		MaxPrice:  DefaultMaxPrice,
	}
}

// Validate reports the first inconsistent parameter.
func (p Params) Validate() error {
	switch {
	case !(p.BasePrice > 0):
		return fmt.Errorf("%w: base price must be positive, got %v", ErrInvalidParams, p.BasePrice)
	case math.IsNaN(p.Alpha) || math.IsNaN(p.Lambda):
		return fmt.Errorf("%w: alpha and lambda must be numbers", ErrInvalidParams)
	case p.RadiusKm < 0 || math.IsNaN(p.RadiusKm):
		return fmt.Errorf("%w: radius must not be negative, got %v", ErrInvalidParams, p.RadiusKm)
	case !(p.MinPrice < p.MaxPrice):
		return fmt.Errorf("%w: min price %v must be below max price %v", ErrInvalidParams, p.MinPrice, p.MaxPrice)
	}
	return nil
}

func (p Params) clamp(price float64) float64 {
	return math.Max(p.MinPrice, math.Min(p.MaxPrice, price))
}

// Round2 rounds x to two decimals, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
