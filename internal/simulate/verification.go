package simulate

import (
	"fmt"
	"math"

	"github.com/okian/parkprice/internal/domain/model"
)

// Violation describes one price that broke a bound.
type Violation struct {
	LotID  string
	Reason string
}

func (v Violation) String() string { return v.LotID + ": " + v.Reason }

// Verify checks that every expected lot was priced, that demand and
// competitive prices lie in [MinPrice, MaxPrice] and that the competitive
// adjustment stays within MaxAdjustment.
func Verify(expected []string, prices []model.PriceUpdate) []Violation {
	var out []Violation
	seen := make(map[string]bool, len(prices))
	for _, p := range prices {
		seen[p.LotID] = true
		if !inRange(p.DemandPrice) {
			out = append(out, Violation{p.LotID, fmt.Sprintf("demand price %.2f out of range", p.DemandPrice)})
		}
		if !inRange(p.CompetitivePrice) {
			out = append(out, Violation{p.LotID, fmt.Sprintf("competitive price %.2f out of range", p.CompetitivePrice)})
		}
		if d := math.Abs(p.CompetitivePrice - p.DemandPrice); d > MaxAdjustment+priceEpsilon {
			out = append(out, Violation{p.LotID, fmt.Sprintf("competitive adjustment %.2f exceeds %.2f", d, MaxAdjustment)})
		}
	}
	for _, id := range expected {
		if !seen[id] {
			out = append(out, Violation{id, "not priced"})
		}
	}
	return out
}

func inRange(p float64) bool {
	return p >= MinPrice-priceEpsilon && p <= MaxPrice+priceEpsilon
}
