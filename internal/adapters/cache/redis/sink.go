package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/pkg/logger"
	"github.com/okian/parkprice/pkg/metrics"
)

// UpdatesChannel is the Pub/Sub channel every update is published on.
const UpdatesChannel = "lotprice:updates"

// ErrNotFound is returned by Get for lots never written.
var ErrNotFound = errors.New("redis: price not found")

// PriceSink stores each lot's latest prices as a hash at "lotprice:{lot_id}"
// with fields linear, demand, competitive and ts (Unix nanoseconds), and
// publishes the JSON update on UpdatesChannel.
type PriceSink struct {
	rdb    *redis.Client
	logger logger.Logger
}

// NewPriceSink creates a PriceSink backed by the given Client.
func NewPriceSink(c *Client, l logger.Logger) *PriceSink {
	if l == nil {
		l = logger.Get().Named("redis-sink")
	}
	return &PriceSink{rdb: c.Underlying(), logger: l}
}

// Key returns the hash key for a lot.
func Key(lotID string) string {
	return "lotprice:" + lotID
}

// Fields encodes u as hash fields.
func Fields(u model.PriceUpdate) map[string]interface{} {
	return map[string]interface{}{
		"linear":      strconv.FormatFloat(u.LinearPrice, 'f', -1, 64),
		"demand":      strconv.FormatFloat(u.DemandPrice, 'f', -1, 64),
		"competitive": strconv.FormatFloat(u.CompetitivePrice, 'f', -1, 64),
		"ts":          strconv.FormatInt(u.Timestamp.UnixNano(), 10),
	}
}

// Decode rebuilds an update from hash fields.
func Decode(lotID string, vals map[string]string) (model.PriceUpdate, error) {
	var ps model.PriceSet
	for name, dst := range map[string]*float64{
		"linear":      &ps.Linear,
		"demand":      &ps.Demand,
		"competitive": &ps.Competitive,
	} {
		raw, ok := vals[name]
		if !ok {
			return model.PriceUpdate{}, fmt.Errorf("redis: %s: missing %s: %w", lotID, name, ErrNotFound)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.PriceUpdate{}, fmt.Errorf("redis: parse %s %s: %w", lotID, name, err)
		}
		*dst = v
	}
	raw, ok := vals["ts"]
	if !ok {
		return model.PriceUpdate{}, fmt.Errorf("redis: %s: missing ts: %w", lotID, ErrNotFound)
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return model.PriceUpdate{}, fmt.Errorf("redis: parse %s ts: %w", lotID, err)
	}
	return model.NewPriceUpdate(lotID, time.Unix(0, ns).UTC(), ps), nil
}

// Write stores u and publishes it in one round trip.
func (s *PriceSink) Write(ctx context.Context, u model.PriceUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", u.LotID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, Key(u.LotID), Fields(u))
		pipe.Publish(ctx, UpdatesChannel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: write %s: %w", u.LotID, err)
	}
	return nil
}

// Get reads a lot's stored prices.
func (s *PriceSink) Get(ctx context.Context, lotID string) (model.PriceUpdate, error) {
	vals, err := s.rdb.HGetAll(ctx, Key(lotID)).Result()
	if err != nil {
		return model.PriceUpdate{}, fmt.Errorf("redis: get %s: %w", lotID, err)
	}
	if len(vals) == 0 {
		return model.PriceUpdate{}, ErrNotFound
	}
	return Decode(lotID, vals)
}

// Run writes every update received on updates until the channel closes or
// ctx is done. Failed writes are logged and counted and never retried.
func (s *PriceSink) Run(ctx context.Context, updates <-chan model.PriceUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := s.Write(ctx, u); err != nil {
				metrics.RecordSinkError()
				s.logger.Warn(ctx, "sink write failed", logger.String("lot", u.LotID), logger.Error(err))
				continue
			}
			metrics.RecordSinkWrite()
		}
	}
}
