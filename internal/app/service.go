// Package service wires the pricing engine to its queue, tick runner, event
// bus and optional Redis sink, and implements the dependencies required by
// the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/parkprice/internal/adapters/cache/redis"
	"github.com/okian/parkprice/internal/adapters/mq/queue"
	"github.com/okian/parkprice/internal/adapters/mq/worker"
	"github.com/okian/parkprice/internal/config"
	"github.com/okian/parkprice/internal/domain/dedupe"
	"github.com/okian/parkprice/internal/domain/geo"
	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/normalize"
	"github.com/okian/parkprice/internal/engine"
	"github.com/okian/parkprice/internal/eventbus"
	"github.com/okian/parkprice/pkg/logger"
	"github.com/okian/parkprice/pkg/metrics"
)

const (
	runnerShutdownTimeout = 5 * time.Second
	redisPingTimeout      = 500 * time.Millisecond
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the pricing system.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	bus     *eventbus.Bus[model.PriceUpdate]
	engine  *engine.Engine
	runner  *worker.TickRunner
	redis   *redis.Client
	sink    *redis.PriceSink

	// State
	started   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	ticks     int64
	lastTick  engine.TickResult
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// New constructs a new Service. Components are built by Start.
func New(opts ...Option) *Service {
	s := &Service{cfg: config.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	cfg := s.cfg

	s.logger.Info(ctx, "starting pricing service...")

	// Components are assigned to s only once every step succeeded, so a
	// failed Start leaves the service unusable rather than half built.
	deduper := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize))
	bus := eventbus.New[model.PriceUpdate](
		eventbus.WithBuffer(cfg.BusBuffer),
		eventbus.WithDropHook(metrics.RecordBusDrop),
	)

	eng, err := engine.New(
		engine.WithParams(cfg.Pricing.Params()),
		engine.WithIndex(newIndex(cfg)),
		engine.WithNormalizer(newNormalizer(cfg)),
		engine.WithPublisher(bus),
		engine.WithParallelism(cfg.Parallelism),
		engine.WithMaxBatchSize(cfg.MaxBatchSize),
		engine.WithHistoryLimit(cfg.HistoryLimit),
	)
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}

	var (
		client *redis.Client
		sink   *redis.PriceSink
	)
	if cfg.RedisAddr != "" {
		client, err = redis.New(ctx, redis.ClientConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		sink = redis.NewPriceSink(client, s.logger.Named("redis-sink"))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runner := worker.NewTickRunner(q, eng,
		worker.WithLogger(s.logger.Named("tick-runner")),
		worker.WithResultHook(s.recordTick),
	)

	s.deduper, s.queue, s.bus, s.engine = deduper, q, bus, eng
	s.redis, s.sink, s.runner, s.cancel = client, sink, runner, cancel

	if sink != nil {
		updates := bus.Subscribe()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer bus.Unsubscribe(updates)
			sink.Run(runCtx, updates)
		}()
		s.logger.Info(ctx, "redis sink enabled", logger.String("addr", cfg.RedisAddr))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runner.Run(runCtx)
	}()

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "pricing service started",
		logger.Int("queueSize", cfg.QueueSize),
		logger.Int("dedupeSize", cfg.DedupeSize),
		logger.String("geoIndex", cfg.GeoIndex),
		logger.String("normalizer", cfg.Normalizer),
		logger.Int("parallelism", cfg.Parallelism),
	)
	return nil
}

func newIndex(cfg *config.Config) geo.Index {
	if cfg.GeoIndex == config.GeoIndexLinear {
		return geo.NewLinearIndex()
	}
	return geo.NewGridIndex(geo.WithCellSize(cfg.GridCellDeg))
}

func newNormalizer(cfg *config.Config) normalize.Normalizer {
	if cfg.Normalizer == config.NormalizerFixed {
		return normalize.NewFixedRange(cfg.OccupancyMax, cfg.QueueMax)
	}
	return normalize.NewRunningMinMax()
}

func (s *Service) recordTick(res engine.TickResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	s.lastTick = res
}

// Stop gracefully shuts down the service. Batches already queued are
// ticked before the runner exits.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping pricing service...")

	// Closing the queue lets the runner drain it and exit on its own.
	_ = s.queue.Close()
	select {
	case <-s.runner.Done():
	case <-time.After(runnerShutdownTimeout):
		s.logger.Warn(ctx, "tick runner did not drain in time")
	}
	s.cancel()
	s.bus.Close()
	s.wg.Wait()

	s.mu.Lock()
	rc := s.redis
	s.redis, s.sink = nil, nil
	s.mu.Unlock()
	if rc != nil {
		if err := rc.Close(); err != nil {
			s.logger.Warn(ctx, "redis close failed", logger.Error(err))
		}
	}
	s.logger.Info(ctx, "pricing service stopped")
}

// SeenAndRecord reports whether a batch id was already accepted and records
// it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	d := s.dedupe()
	if d == nil {
		return false
	}
	return d.SeenAndRecord(ctx, id)
}

// Unrecord removes a batch id so it can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if d := s.dedupe(); d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	d := s.dedupe()
	if d == nil {
		return 0
	}
	return d.Size()
}

func (s *Service) dedupe() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper
}

// running returns the engine when the service is started.
func (s *Service) running() (*engine.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine, s.started
}

// Enqueue queues a batch for the next tick.
func (s *Service) Enqueue(ctx context.Context, b model.Batch) error { //nolint:gocritic // hugeParam: batches travel by value
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	s.logger.Debug(ctx, "enqueueing batch", logger.String("batch", b.ID), logger.Int("readings", len(b.Readings)))
	if err := q.Enqueue(ctx, b); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	return nil
}

// Tick runs b through the engine synchronously, bypassing the queue.
func (s *Service) Tick(ctx context.Context, b model.Batch) (engine.TickResult, error) { //nolint:gocritic // hugeParam: batches travel by value
	eng, ok := s.running()
	if !ok {
		return engine.TickResult{}, ErrNotStarted
	}
	return eng.Tick(ctx, b)
}

// Subscribe returns a channel receiving every emitted price update.
func (s *Service) Subscribe() (<-chan model.PriceUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.bus.Subscribe(), nil
}

// Lots returns the latest prices of every lot.
func (s *Service) Lots(_ context.Context) []model.PriceUpdate {
	eng, _ := s.running()
	if eng == nil {
		return []model.PriceUpdate{}
	}
	return eng.Lots()
}

// Lot returns the latest prices of one lot. Lots the engine has not priced
// since start are looked up in Redis when the sink is enabled, so prices
// mirrored by an earlier run stay readable.
func (s *Service) Lot(ctx context.Context, lotID string) (model.PriceUpdate, error) {
	s.mu.RLock()
	eng, sink := s.engine, s.sink
	s.mu.RUnlock()
	if eng == nil {
		return model.PriceUpdate{}, ErrNotStarted
	}
	if st, ok := eng.Lot(lotID); ok {
		return st.Latest(), nil
	}
	if sink != nil {
		u, err := sink.Get(ctx, lotID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, redis.ErrNotFound) {
			s.logger.Warn(ctx, "redis lookup failed", logger.String("lot", lotID), logger.Error(err))
		}
	}
	return model.PriceUpdate{}, fmt.Errorf("lot %q: %w", lotID, engine.ErrNotFound)
}

// History returns up to limit recent history entries of a lot.
func (s *Service) History(_ context.Context, lotID string, limit int) ([]engine.HistoryEntry, error) {
	eng, _ := s.running()
	if eng == nil {
		return nil, ErrNotStarted
	}
	return eng.History(lotID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	rc := s.redis
	s.mu.RUnlock()
	var redisHealthy bool
	if rc != nil {
		// Ping outside the lock so a slow Redis never stalls tick bookkeeping.
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		redisHealthy = rc.Ping(ctx) == nil
		cancel()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"queueSize":  s.cfg.QueueSize,
		"dedupeSize": s.cfg.DedupeSize,
		"geoIndex":   s.cfg.GeoIndex,
		"normalizer": s.cfg.Normalizer,
		"redis":      s.cfg.RedisAddr != "",
	}
	if s.engine == nil {
		return stats
	}

	queueLen := s.queue.Len()
	stats["queueLength"] = queueLen
	stats["queueCapacity"] = s.queue.Cap()
	stats["lots"] = s.engine.Len()
	stats["ticks"] = s.ticks
	stats["subscribers"] = s.bus.Subscribers()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	p := s.engine.Params()
	stats["pricing"] = map[string]interface{}{
		"basePrice": p.BasePrice,
		"radiusKm":  p.RadiusKm,
		"minPrice":  p.MinPrice,
		"maxPrice":  p.MaxPrice,
	}
	if rc != nil {
		stats["redisHealthy"] = redisHealthy
	}
	if s.ticks > 0 {
		stats["lastTick"] = map[string]interface{}{
			"id":         s.lastTick.TickID,
			"updates":    len(s.lastTick.Updates),
			"rejected":   len(s.lastTick.Rejected),
			"unlocated":  len(s.lastTick.Unlocated),
			"durationMs": float64(s.lastTick.Duration.Microseconds()) / 1000,
		}
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateLotsTracked(s.engine.Len())
	return stats
}
