package simulate

import "time"

// Fleet shape defaults.
const (
	DefaultLots       = 200
	DefaultRounds     = 20
	DefaultInterval   = 500 * time.Millisecond
	DefaultSpreadKm   = 3.0
	DefaultCenterLat  = 40.7128
	DefaultCenterLon  = -74.0060
	DefaultSettleTime = 10 * time.Second
	DefaultTimeout    = 30 * time.Second
)

// Verification bounds on emitted prices.
const (
	MinPrice      = 5.0
	MaxPrice      = 20.0
	MaxAdjustment = 1.0
)

const (
	kmPerDegree   = 111.32
	minCapacity   = 20
	capacitySpan  = 480
	maxQueue      = 40
	occupancyStep = 8
	queueStep     = 3
	// trafficShiftPercent is the chance per round that a lot's traffic band changes.
	trafficShiftPercent = 20
	settlePoll          = 100 * time.Millisecond
	// priceEpsilon absorbs float noise around the two-decimal rounding.
	priceEpsilon = 1e-9
)
