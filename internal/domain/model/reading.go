// Package model contains domain models passed between layers.
package model

import "time"

// TrafficLevel is the coarse traffic band reported around a lot.
type TrafficLevel string

// Traffic levels accepted on the wire.
const (
	TrafficLow    TrafficLevel = "low"
	TrafficMedium TrafficLevel = "medium"
	TrafficHigh   TrafficLevel = "high"
)

// Valid reports whether t is one of the known traffic levels.
func (t TrafficLevel) Valid() bool {
	switch t {
	case TrafficLow, TrafficMedium, TrafficHigh:
		return true
	}
	return false
}

// VehicleType is the dominant vehicle class observed at a lot.
type VehicleType string

// Vehicle types accepted on the wire.
const (
	VehicleBike  VehicleType = "bike"
	VehicleCar   VehicleType = "car"
	VehicleTruck VehicleType = "truck"
)

// Valid reports whether v is one of the known vehicle types.
func (v VehicleType) Valid() bool {
	switch v {
	case VehicleBike, VehicleCar, VehicleTruck:
		return true
	}
	return false
}

// LotReading is one sensor observation for a parking lot.
// Occupancy may exceed Capacity; the resulting rate above 1 is priced, not rejected.
type LotReading struct {
	LotID        string
	Timestamp    time.Time
	Occupancy    int
	Capacity     int
	QueueLength  int
	TrafficLevel TrafficLevel
	VehicleType  VehicleType
	IsSpecialDay bool
	Latitude     float64
	Longitude    float64
}

// OccupancyRate returns Occupancy/Capacity, or 0 when capacity is not positive.
func (r LotReading) OccupancyRate() float64 {
	if r.Capacity <= 0 {
		return 0
	}
	return float64(r.Occupancy) / float64(r.Capacity)
}

// Features are the numeric inputs the demand policy prices from.
type Features struct {
	OccupancyRate       float64
	NormalizedOccupancy float64 // [0,1]
	NormalizedQueue     float64 // [0,1]
	TrafficLevel        TrafficLevel
	VehicleType         VehicleType
	IsSpecialDay        bool
}

// Batch is a tick envelope: readings that are priced together.
type Batch struct {
	ID       string
	Readings []LotReading
}
