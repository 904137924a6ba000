package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/pkg/logger"
)

// ErrVerification is returned by Run when emitted prices break a bound.
var ErrVerification = errors.New("price verification failed")

// Run executes a complete simulation against a running service.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")

	log.Info(ctx, "starting parking price simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("lots", config.Lots),
		logger.Int("rounds", config.Rounds),
		logger.Duration("interval", config.Interval),
		logger.Float64("spreadKm", config.SpreadKm),
		logger.Any("seed", config.Seed))

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate the fleet
	fleet := NewFleet(config)
	lots := fleet.Lots()
	ids := make([]string, len(lots))
	for i := range lots {
		ids[i] = lots[i].ID
	}

	// Step 3: Post one batch per round
	start := time.Now().UTC()
	for round := 0; round < config.Rounds; round++ {
		if round > 0 {
			fleet.Step()
		}
		req := fleet.Batch(start.Add(time.Duration(round) * time.Millisecond))
		ack, status, err := client.PostBatch(ctx, &req)
		stats.BatchesPosted++
		stats.ReadingsPosted += len(req.Readings)
		stats.ReadingsRejected += len(ack.Rejected)
		switch {
		case err != nil:
			stats.BatchesFailed++
			log.Warn(ctx, "batch failed", logger.Int("round", round), logger.Error(err))
		case status == http.StatusOK:
			stats.BatchesDuplicate++
		case status == http.StatusAccepted:
			stats.BatchesAccepted++
		default:
			stats.BatchesFailed++
			log.Warn(ctx, "batch rejected", logger.Int("round", round), logger.Int("status", status))
		}
		if config.Verbose {
			log.Info(ctx, "round posted",
				logger.Int("round", round),
				logger.Int("status", status),
				logger.Int("accepted", ack.Accepted))
		}
		if config.Interval > 0 && round < config.Rounds-1 {
			select {
			case <-ctx.Done():
				return stats, fmt.Errorf("simulation cancelled: %w", ctx.Err())
			case <-time.After(config.Interval):
			}
		}
	}

	// Step 4: Wait for the last tick and fetch prices
	prices, err := settle(ctx, client, len(ids), config.SettleTimeout)
	if err != nil {
		return stats, fmt.Errorf("price retrieval failed: %w", err)
	}
	stats.LotsPriced = len(prices)

	// Step 5: Verify
	violations := Verify(ids, prices)
	stats.Violations = len(violations)
	for _, v := range violations {
		log.Warn(ctx, "price violation", logger.String("lot", v.LotID), logger.String("reason", v.Reason))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if len(violations) > 0 {
		return stats, fmt.Errorf("%w: %d violations", ErrVerification, len(violations))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// settle polls /prices until want lots are priced or the timeout passes,
// returning the last response either way.
func settle(ctx context.Context, client *Client, want int, timeout time.Duration) ([]model.PriceUpdate, error) {
	deadline := time.Now().Add(timeout)
	for {
		prices, err := client.Prices(ctx)
		if err != nil {
			return nil, err
		}
		if len(prices) >= want || time.Now().After(deadline) {
			return prices, nil
		}
		select {
		case <-ctx.Done():
			return prices, ctx.Err()
		case <-time.After(settlePoll):
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var readingsPerSecond float64
	if stats.Duration > 0 {
		readingsPerSecond = float64(stats.ReadingsPosted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("batchesPosted", stats.BatchesPosted),
		logger.Int("batchesAccepted", stats.BatchesAccepted),
		logger.Int("batchesDuplicate", stats.BatchesDuplicate),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("readingsPosted", stats.ReadingsPosted),
		logger.Int("readingsRejected", stats.ReadingsRejected),
		logger.Int("lotsPriced", stats.LotsPriced),
		logger.Int("violations", stats.Violations),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("readingsPerSecond", readingsPerSecond))
}
