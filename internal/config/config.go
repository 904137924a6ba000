// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"

	"github.com/okian/parkprice/internal/domain/geo"
	"github.com/okian/parkprice/internal/domain/pricing"
)

// Geo index kinds.
const (
	GeoIndexLinear = "linear"
	GeoIndexGrid   = "grid"
)

// Normalizer kinds.
const (
	NormalizerRunning = "running"
	NormalizerFixed   = "fixed"
)

// Pricing holds the pricing parameters.
type Pricing struct {
	BasePrice float64 `koanf:"base_price"`
	Alpha     float64 `koanf:"alpha"`
	Lambda    float64 `koanf:"lambda"`
	RadiusKm  float64 `koanf:"radius_km"`
	MinPrice  float64 `koanf:"min_price"`
	MaxPrice  float64 `koanf:"max_price"`
}

// Params converts p to the engine's parameter set.
func (p Pricing) Params() pricing.Params {
	return pricing.Params{
		BasePrice: p.BasePrice,
		Alpha:     p.Alpha,
		Lambda:    p.Lambda,
		RadiusKm:  p.RadiusKm,
		MinPrice:  p.MinPrice,
		MaxPrice:  p.MaxPrice,
	}
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory batch queue.
	QueueSize int `koanf:"queue_size"`

	// MaxBatchSize caps the readings in one batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// DedupeSize sets how many batch ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// HistoryLimit is the number of history entries kept per lot; 0 keeps all.
	HistoryLimit int `koanf:"history_limit"`

	// MaxHistoryLimit caps GET /prices/{lot_id}/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// Parallelism bounds the goroutines used per tick phase.
	Parallelism int `koanf:"parallelism"`

	// BusBuffer is the per-subscriber buffer of the price bus.
	BusBuffer int `koanf:"bus_buffer"`

	// GeoIndex selects the neighbor index: linear or grid.
	GeoIndex string `koanf:"geo_index"`

	// GridCellDeg is the grid cell size in degrees.
	GridCellDeg float64 `koanf:"grid_cell_deg"`

	// Normalizer selects feature scaling: running or fixed.
	Normalizer string `koanf:"normalizer"`

	// OccupancyMax and QueueMax are the fixed normalizer's upper bounds.
	OccupancyMax float64 `koanf:"occupancy_max"`
	QueueMax     float64 `koanf:"queue_max"`

	// RedisAddr enables the Redis price sink when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	Pricing Pricing `koanf:"pricing"`
}

// New creates a Config with defaults.
func New() *Config {
	p := pricing.DefaultParams()
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		QueueSize:       1024,
		MaxBatchSize:    10_000,
		DedupeSize:      50_000,
		HistoryLimit:    1_000,
		MaxHistoryLimit: 500,
		Parallelism:     runtime.NumCPU(),
		BusBuffer:       1024,
		GeoIndex:        GeoIndexGrid,
		GridCellDeg:     0.01,
		Normalizer:      NormalizerRunning,
		OccupancyMax:    1_000,
		QueueMax:        50,
		Pricing: Pricing{
			BasePrice: p.BasePrice,
			Alpha:     p.Alpha,
			Lambda:    p.Lambda,
			RadiusKm:  p.RadiusKm,
			MinPrice:  p.MinPrice,
			MaxPrice:  p.MaxPrice,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.GeoIndex != GeoIndexLinear && c.GeoIndex != GeoIndexGrid:
		return fmt.Errorf("%w: unknown geo_index %q", ErrInvalidConfig, c.GeoIndex)
	case c.GeoIndex == GeoIndexGrid && c.GridCellDeg < geo.MinCellDeg:
		return fmt.Errorf("%w: grid_cell_deg must be at least %g", ErrInvalidConfig, geo.MinCellDeg)
	case c.Normalizer != NormalizerRunning && c.Normalizer != NormalizerFixed:
		return fmt.Errorf("%w: unknown normalizer %q", ErrInvalidConfig, c.Normalizer)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.HistoryLimit < 0:
		return fmt.Errorf("%w: history_limit must not be negative", ErrInvalidConfig)
	}
	if err := c.Pricing.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
