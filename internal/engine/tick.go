package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/parkprice/internal/domain/geo"
	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/pricing"
	"github.com/okian/parkprice/pkg/logger"
	"github.com/okian/parkprice/pkg/metrics"
)

// Rejection reports a reading excluded from a tick.
type Rejection struct {
	LotID     string
	Timestamp time.Time
	Err       error
}

// TickResult is the outcome of one tick.
type TickResult struct {
	TickID  string
	Updates []model.PriceUpdate // sorted by lot id
	// Rejected lists every reading that failed validation. A lot appears in
	// Updates only if at least one of its readings was accepted.
	Rejected []Rejection
	// Unlocated lists lots priced without neighbors because their
	// coordinates were out of range.
	Unlocated []string
	Duration  time.Duration
}

// staged is one lot's in-flight work for the current tick. Nothing in it is
// visible on LotState until commit.
type staged struct {
	reading  model.LotReading
	located  bool
	features model.Features
	prices   model.PriceSet
	adjust   pricing.Adjustment
}

// Tick ingests b and prices every lot it touches. Envelope problems reject
// the whole tick before any state changes; reading problems only exclude
// the affected lot.
func (e *Engine) Tick(ctx context.Context, b model.Batch) (TickResult, error) {
	if err := ctx.Err(); err != nil {
		return TickResult{}, fmt.Errorf("tick: %w", err)
	}
	switch {
	case len(b.Readings) == 0:
		metrics.RecordTickRejected(Reason(ErrEmptyBatch))
		return TickResult{}, fmt.Errorf("tick %q: %w", b.ID, ErrEmptyBatch)
	case len(b.Readings) > e.maxBatchSize:
		metrics.RecordTickRejected(Reason(ErrBatchTooLarge))
		return TickResult{}, fmt.Errorf("tick %q: %d readings exceeds %d: %w", b.ID, len(b.Readings), e.maxBatchSize, ErrBatchTooLarge)
	}

	start := time.Now()
	tickID := b.ID
	if tickID == "" {
		tickID = uuid.NewString()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Ingesting
	ids, work, accepted, rejected := e.ingest(b.Readings)
	e.normalizer.Observe(accepted)

	// ComputingDemand. g.Wait is the barrier: no lot enters the competitive
	// phase until every lot has its demand price.
	e.computeDemand(ids, work)

	// ComputingCompetitive
	unlocated := e.relocate(ids, work)
	snap := e.snapshot(work)
	e.computeCompetitive(ids, work, snap)

	// Emitting
	updates := e.commit(tickID, ids, work)

	res := TickResult{
		TickID:    tickID,
		Updates:   updates,
		Rejected:  rejected,
		Unlocated: unlocated,
		Duration:  time.Since(start),
	}
	e.record(ctx, res, len(accepted), work)
	return res, nil
}

// ingest validates readings and stages the newest valid one per lot. It
// returns the staged lot ids sorted, the staged work, every accepted reading
// (for normalization) and the rejections.
func (e *Engine) ingest(readings []model.LotReading) ([]string, map[string]*staged, []model.LotReading, []Rejection) {
	byLot := make(map[string][]model.LotReading)
	var rejected []Rejection
	for _, r := range readings {
		if r.LotID == "" {
			rejected = append(rejected, Rejection{Timestamp: r.Timestamp, Err: ValidateReading(r)})
			continue
		}
		byLot[r.LotID] = append(byLot[r.LotID], r)
	}

	work := make(map[string]*staged, len(byLot))
	accepted := make([]model.LotReading, 0, len(readings))
	for lotID, rs := range byLot {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Timestamp.Before(rs[j].Timestamp) })

		var last time.Time
		if s, ok := e.lots[lotID]; ok {
			last = s.Reading.Timestamp
		}
		for _, r := range rs {
			if err := validate(r, last); err != nil {
				rejected = append(rejected, Rejection{LotID: lotID, Timestamp: r.Timestamp, Err: err})
				continue
			}
			last = r.Timestamp
			accepted = append(accepted, r)
			work[lotID] = &staged{
				reading: r,
				located: geo.Point{Lat: r.Latitude, Lon: r.Longitude}.Valid(),
			}
		}
	}

	ids := make([]string, 0, len(work))
	for id := range work {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	sort.SliceStable(rejected, func(i, j int) bool { return rejected[i].LotID < rejected[j].LotID })
	return ids, work, accepted, rejected
}

// ValidateReading performs the checks that need no lot state. Coordinates
// are not checked; out-of-range ones only disable neighbor lookup.
func ValidateReading(r model.LotReading) error {
	fail := func(field string, err error) error {
		return &ReadingError{LotID: r.LotID, Field: field, Err: err}
	}
	switch {
	case r.LotID == "":
		return fail("lot_id", ErrMissingField)
	case r.Timestamp.IsZero():
		return fail("timestamp", ErrMissingField)
	case r.TrafficLevel == "":
		return fail("traffic_level", ErrMissingField)
	case r.VehicleType == "":
		return fail("vehicle_type", ErrMissingField)
	case r.Capacity <= 0:
		return fail("capacity", ErrInvalidCapacity)
	case r.Occupancy < 0:
		return fail("occupancy", ErrInvalidCount)
	case r.QueueLength < 0:
		return fail("queue_length", ErrInvalidCount)
	case !r.TrafficLevel.Valid():
		return fail("traffic_level", fmt.Errorf("%w: %q", ErrUnknownEnumValue, r.TrafficLevel))
	case !r.VehicleType.Valid():
		return fail("vehicle_type", fmt.Errorf("%w: %q", ErrUnknownEnumValue, r.VehicleType))
	}
	return nil
}

// validate adds the ordering check against the lot's last accepted reading.
func validate(r model.LotReading, last time.Time) error {
	if err := ValidateReading(r); err != nil {
		return err
	}
	if !last.IsZero() && !r.Timestamp.After(last) {
		return &ReadingError{LotID: r.LotID, Field: "timestamp", Err: fmt.Errorf("%w: %s is not after %s",
			ErrStaleReading, r.Timestamp.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))}
	}
	return nil
}

// computeDemand runs the linear and demand policies for every staged lot.
// Each goroutine writes only its own lot's entry.
func (e *Engine) computeDemand(ids []string, work map[string]*staged) {
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for _, id := range ids {
		w := work[id]
		g.Go(func() error {
			w.features = e.normalizer.Features(w.reading)
			// Capacity was validated, so Linear cannot fail here.
			linear, _ := pricing.Linear(w.reading.Occupancy, w.reading.Capacity, e.params)
			w.prices.Linear = linear
			w.prices.Demand = pricing.Demand(w.features, e.params)
			return nil
		})
	}
	_ = g.Wait()
}

// relocate moves staged lots in the index. Lots with invalid coordinates
// leave the index so no other lot sees them as neighbors this tick.
func (e *Engine) relocate(ids []string, work map[string]*staged) []string {
	var unlocated []string
	for _, id := range ids {
		w := work[id]
		if !w.located {
			e.index.Remove(id)
			unlocated = append(unlocated, id)
			continue
		}
		e.index.Upsert(id, geo.Point{Lat: w.reading.Latitude, Lon: w.reading.Longitude})
	}
	return unlocated
}

// snapshot freezes every lot's current demand price and occupancy rate:
// this tick's value for staged lots, the committed one for the rest.
func (e *Engine) snapshot(work map[string]*staged) pricing.Snapshot {
	snap := make(pricing.Snapshot, len(e.lots)+len(work))
	for id, s := range e.lots {
		snap[id] = pricing.Neighbor{DemandPrice: s.Prices.Demand, OccupancyRate: s.Features.OccupancyRate}
	}
	for id, w := range work {
		snap[id] = pricing.Neighbor{DemandPrice: w.prices.Demand, OccupancyRate: w.features.OccupancyRate}
	}
	return snap
}

// computeCompetitive nudges each staged lot against the frozen snapshot. It
// reads only snap and the index, never another lot's competitive price.
func (e *Engine) computeCompetitive(ids []string, work map[string]*staged, snap pricing.Snapshot) {
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for _, id := range ids {
		w := work[id]
		g.Go(func() error {
			if !w.located {
				w.prices.Competitive, w.adjust = w.prices.Demand, pricing.AdjustNone
				return nil
			}
			neighbors := pricing.Neighbors(e.index, id, snap, e.params)
			w.prices.Competitive, w.adjust = pricing.Competitive(w.prices.Demand, neighbors, e.params)
			return nil
		})
	}
	_ = g.Wait()
}

// commit writes staged work into LotState and publishes the updates.
func (e *Engine) commit(tickID string, ids []string, work map[string]*staged) []model.PriceUpdate {
	updates := make([]model.PriceUpdate, 0, len(ids))
	for _, id := range ids {
		w := work[id]
		s, ok := e.lots[id]
		if !ok {
			s = &LotState{LotID: id}
			e.lots[id] = s
		}
		s.Reading = w.reading
		s.Features = w.features
		s.Prices = w.prices
		s.Located = w.located
		s.appendHistory(HistoryEntry{Timestamp: w.reading.Timestamp, TickID: tickID, Prices: w.prices}, e.historyLimit)
		updates = append(updates, s.Latest())
	}
	if e.publisher != nil {
		for _, u := range updates {
			e.publisher.Publish(u)
		}
	}
	return updates
}

func (e *Engine) record(ctx context.Context, res TickResult, accepted int, work map[string]*staged) {
	for _, rj := range res.Rejected {
		metrics.RecordReadingRejected(Reason(rj.Err))
		e.logger.Warn(ctx, "reading rejected",
			logger.String("tick", res.TickID),
			logger.String("lot", rj.LotID),
			logger.String("reason", Reason(rj.Err)),
			logger.Error(rj.Err),
		)
	}
	for _, id := range res.Unlocated {
		w := work[id]
		e.logger.Warn(ctx, "lot priced without neighbors",
			logger.String("tick", res.TickID),
			logger.String("lot", id),
			logger.Error(&ReadingError{LotID: id, Field: "coordinates", Err: fmt.Errorf("%w: (%g, %g)",
				ErrInvalidCoordinate, w.reading.Latitude, w.reading.Longitude)}),
		)
	}
	for _, w := range work {
		if w.adjust != pricing.AdjustNone {
			metrics.RecordCompetitiveAdjustment(string(w.adjust))
		}
	}
	metrics.RecordReadingsAccepted(accepted)
	metrics.RecordPriceUpdates(len(res.Updates))
	metrics.UpdateLotsTracked(len(e.lots))
	metrics.RecordTick(float64(res.Duration.Microseconds()) / 1000)

	e.logger.Debug(ctx, "tick complete",
		logger.String("tick", res.TickID),
		logger.Int("updates", len(res.Updates)),
		logger.Int("rejected", len(res.Rejected)),
		logger.Int("unlocated", len(res.Unlocated)),
		logger.Duration("took", res.Duration),
	)
}
