package simulate

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/types"
)

var (
	trafficLevels = []model.TrafficLevel{model.TrafficLow, model.TrafficMedium, model.TrafficHigh}
	vehicleTypes  = []model.VehicleType{model.VehicleBike, model.VehicleCar, model.VehicleTruck}
)

// Lot is the simulated state of one parking lot.
type Lot struct {
	ID        string
	Latitude  float64
	Longitude float64
	Capacity  int
	Occupancy int
	Queue     int
	Traffic   model.TrafficLevel
	Vehicle   model.VehicleType
}

// Fleet is a set of lots evolved by a random walk.
type Fleet struct {
	lots    []Lot
	rng     *rand.Rand
	special bool
}

// NewFleet scatters cfg.Lots lots uniformly over a square of cfg.SpreadKm
// around the configured center.
func NewFleet(cfg *Config) *Fleet {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	latSpan := cfg.SpreadKm / kmPerDegree
	lonSpan := cfg.SpreadKm / (kmPerDegree * math.Cos(cfg.CenterLat*math.Pi/180))

	f := &Fleet{lots: make([]Lot, cfg.Lots), rng: rng, special: cfg.SpecialDay}
	for i := range f.lots {
		capacity := minCapacity + rng.IntN(capacitySpan)
		f.lots[i] = Lot{
			ID:        uuid.Must(uuid.NewRandomFromReader(rngReader{rng})).String(),
			Latitude:  cfg.CenterLat + (rng.Float64()*2-1)*latSpan,
			Longitude: cfg.CenterLon + (rng.Float64()*2-1)*lonSpan,
			Capacity:  capacity,
			Occupancy: rng.IntN(capacity + 1),
			Queue:     rng.IntN(maxQueue / 4),
			Traffic:   trafficLevels[rng.IntN(len(trafficLevels))],
			Vehicle:   vehicleTypes[rng.IntN(len(vehicleTypes))],
		}
	}
	return f
}

// Lots returns a copy of the current lot states.
func (f *Fleet) Lots() []Lot {
	out := make([]Lot, len(f.lots))
	copy(out, f.lots)
	return out
}

// Step advances every lot by one round of the walk.
func (f *Fleet) Step() {
	for i := range f.lots {
		l := &f.lots[i]
		l.Occupancy = clamp(l.Occupancy+f.rng.IntN(2*occupancyStep+1)-occupancyStep, 0, l.Capacity)
		l.Queue = clamp(l.Queue+f.rng.IntN(2*queueStep+1)-queueStep, 0, maxQueue)
		if f.rng.IntN(100) < trafficShiftPercent {
			l.Traffic = trafficLevels[f.rng.IntN(len(trafficLevels))]
		}
	}
}

// Batch renders the fleet as one POST /readings body stamped at ts.
func (f *Fleet) Batch(ts time.Time) types.BatchRequest {
	stamp := ts.UTC().Format(time.RFC3339Nano)
	req := types.BatchRequest{
		BatchID:  uuid.NewString(),
		Readings: make([]types.ReadingRequest, len(f.lots)),
	}
	for i := range f.lots {
		l := f.lots[i]
		traffic, vehicle := string(l.Traffic), string(l.Vehicle)
		req.Readings[i] = types.ReadingRequest{
			LotID:        &l.ID,
			Timestamp:    &stamp,
			Occupancy:    &l.Occupancy,
			Capacity:     &l.Capacity,
			QueueLength:  &l.Queue,
			TrafficLevel: &traffic,
			VehicleType:  &vehicle,
			IsSpecialDay: &f.special,
			Latitude:     &l.Latitude,
			Longitude:    &l.Longitude,
		}
	}
	return req
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rngReader feeds uuid generation from the seeded source so fleets are
// reproducible.
type rngReader struct{ rng *rand.Rand }

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}
