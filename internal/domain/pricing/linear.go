package pricing

import "fmt"

// Linear prices a lot as base + alpha*occupancy/capacity. The result is not
// clamped, so over-full lots price above MaxPrice.
func Linear(occupancy, capacity int, p Params) (float64, error) {
	if capacity <= 0 {
		return 0, fmt.Errorf("linear price: capacity %d: %w", capacity, ErrDivisionByZero)
	}
	rate := float64(occupancy) / float64(capacity)
	return Round2(p.BasePrice + p.Alpha*rate), nil
}
