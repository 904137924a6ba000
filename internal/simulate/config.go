package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Lots          int           // Number of lots in the fleet
	Rounds        int           // Number of batches to post
	Interval      time.Duration // Pause between rounds
	SettleTimeout time.Duration // How long to wait for the last tick to land
	Timeout       time.Duration // HTTP request timeout
	CenterLat     float64       // Fleet center latitude
	CenterLon     float64       // Fleet center longitude
	SpreadKm      float64       // Half-width of the square the fleet is scattered in
	SpecialDay    bool          // Report every reading as a special day
	Seed          uint64        // Random seed; equal seeds produce equal fleets
	Verbose       bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	BatchesPosted    int
	BatchesAccepted  int
	BatchesDuplicate int
	BatchesFailed    int
	ReadingsPosted   int
	ReadingsRejected int
	LotsPriced       int
	Violations       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
