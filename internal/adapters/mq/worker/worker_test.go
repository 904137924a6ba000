package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/parkprice/internal/adapters/mq/queue"
	worker "github.com/okian/parkprice/internal/adapters/mq/worker"
	model "github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/normalize"
	"github.com/okian/parkprice/internal/engine"
	logging "github.com/okian/parkprice/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// mockTicker records the batches it sees and fails the ids listed in errs.
type mockTicker struct {
	mu   sync.Mutex
	seen []string
	errs map[string]error
	hit  chan string
}

func newMockTicker() *mockTicker {
	return &mockTicker{errs: map[string]error{}, hit: make(chan string, 100)}
}

func (m *mockTicker) Tick(_ context.Context, b model.Batch) (engine.TickResult, error) { //nolint:gocritic // hugeParam: batches travel by value
	m.mu.Lock()
	m.seen = append(m.seen, b.ID)
	err := m.errs[b.ID]
	m.mu.Unlock()
	m.hit <- b.ID
	if err != nil {
		return engine.TickResult{}, err
	}
	return engine.TickResult{TickID: b.ID}, nil
}

func (m *mockTicker) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

func waitFor(ch <-chan string, n int) {
	timeout := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-timeout:
			return
		}
	}
}

func reading(id string, ts time.Time) model.LotReading {
	return model.LotReading{
		LotID: id, Timestamp: ts, Occupancy: 50, Capacity: 100,
		TrafficLevel: model.TrafficMedium, VehicleType: model.VehicleCar,
		Latitude: 40, Longitude: -74,
	}
}

func TestTickRunner(t *testing.T) {
	convey.Convey("Given a tick runner over an in-memory queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		ticker := newMockTicker()

		convey.Convey("When creating a runner with options", func() {
			r := worker.NewTickRunner(q, ticker, worker.WithName("test-runner"), worker.WithLogger(logging.Get()))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(r, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When batches are queued", func() {
			var results []string
			var mu sync.Mutex
			r := worker.NewTickRunner(q, ticker, worker.WithResultHook(func(res engine.TickResult) {
				mu.Lock()
				results = append(results, res.TickID)
				mu.Unlock()
			}))
			ticker.errs["b2"] = engine.ErrEmptyBatch

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go r.Run(ctx)

			for _, id := range []string{"b1", "b2", "b3"} {
				convey.So(q.Enqueue(ctx, model.Batch{ID: id}), convey.ShouldBeNil)
			}
			waitFor(ticker.hit, 3)

			convey.Convey("Then they are ticked in order", func() {
				convey.So(ticker.ids(), convey.ShouldResemble, []string{"b1", "b2", "b3"})
			})

			convey.Convey("Then a failing tick does not stop the runner", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(r.Shutdown(shutdownCtx), convey.ShouldBeNil)

				mu.Lock()
				defer mu.Unlock()
				convey.So(results, convey.ShouldResemble, []string{"b1", "b3"})
			})
		})

		convey.Convey("When the queue is closed", func() {
			r := worker.NewTickRunner(q, ticker)
			convey.So(q.Enqueue(context.Background(), model.Batch{ID: "last"}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)
			go r.Run(context.Background())

			convey.Convey("Then it drains and exits", func() {
				select {
				case <-r.Done():
				case <-time.After(2 * time.Second):
				}
				convey.So(ticker.ids(), convey.ShouldResemble, []string{"last"})
			})
		})

		convey.Convey("When the context is cancelled", func() {
			r := worker.NewTickRunner(q, ticker)
			ctx, cancel := context.WithCancel(context.Background())
			go r.Run(ctx)
			cancel()

			convey.Convey("Then the runner stops", func() {
				var stopped bool
				select {
				case <-r.Done():
					stopped = true
				case <-time.After(2 * time.Second):
				}
				convey.So(stopped, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When Shutdown is called twice", func() {
			r := worker.NewTickRunner(q, ticker)
			go r.Run(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then both calls return cleanly", func() {
				convey.So(r.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(r.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the runner never started", func() {
			r := worker.NewTickRunner(q, ticker)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			convey.Convey("Then Shutdown times out", func() {
				err := r.Shutdown(ctx)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestTickRunnerWithEngine(t *testing.T) {
	convey.Convey("Given a runner driving a real engine", t, func() {
		_ = logging.Init()

		eng, err := engine.New(engine.WithNormalizer(normalize.NewFixedRange(100, 10)))
		convey.So(err, convey.ShouldBeNil)
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		ticks := make(chan engine.TickResult, 8)
		r := worker.NewTickRunner(q, eng, worker.WithResultHook(func(res engine.TickResult) { ticks <- res }))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go r.Run(ctx)

		t0 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		convey.So(q.Enqueue(ctx, model.Batch{ID: "one", Readings: []model.LotReading{reading("lot-1", t0)}}), convey.ShouldBeNil)
		convey.So(q.Enqueue(ctx, model.Batch{ID: "two", Readings: []model.LotReading{reading("lot-1", t0.Add(time.Minute))}}), convey.ShouldBeNil)

		var got []engine.TickResult
		for i := 0; i < 2; i++ {
			select {
			case res := <-ticks:
				got = append(got, res)
			case <-time.After(2 * time.Second):
			}
		}

		convey.Convey("Then both ticks commit in order", func() {
			convey.So(got, convey.ShouldHaveLength, 2)
			convey.So(got[0].TickID, convey.ShouldEqual, "one")
			convey.So(got[1].TickID, convey.ShouldEqual, "two")
			h, err := eng.History("lot-1", 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(h, convey.ShouldHaveLength, 2)
			convey.So(h[1].Prices.Linear, convey.ShouldEqual, 12.5)
		})
	})
}
