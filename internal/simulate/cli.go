package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Parking Price Simulator
=======================

Posts a synthetic fleet of parking lots to the pricing service and checks
the resulting prices.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -lots int
        Number of lots in the fleet (default 200)
  -rounds int
        Number of batches to post (default 20)
  -interval duration
        Pause between rounds (default 500ms)
  -spread float
        Half-width in km of the area lots are scattered over (default 3)
  -lat, -lon float
        Fleet center (default 40.7128, -74.0060)
  -special
        Mark every reading as a special day
  -seed uint
        Random seed (default: current time)
  -settle duration
        How long to wait for the last tick (default 10s)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run ./cmd/simulate

  # A dense fleet posted as fast as possible
  go run ./cmd/simulate -lots 5000 -spread 1 -interval 0
`)
}
