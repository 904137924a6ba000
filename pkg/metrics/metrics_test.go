package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("pricing"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.ticks.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_pricing_ticks_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "parkprice")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, tickBuckets)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("Then none of them panic", func() {
			So(func() {
				RecordTick(1.5)
				RecordTickRejected("empty_batch")
				RecordReadingsAccepted(4)
				RecordReadingRejected("invalid_capacity")
				RecordPriceUpdates(4)
				RecordCompetitiveAdjustment("up")
				UpdateLotsTracked(5)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueEnqueueError("full")
				RecordWorkerBatch()
				RecordWorkerError("empty_batch")
				RecordBusDrop()
				RecordSinkWrite()
				RecordSinkError()
				RecordBatchDuplicate()
				RecordHTTPRequest("readings", "POST", "202")
				RecordHTTPRequestDuration("readings", "POST", "202", 3)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry exposes them", func() {
			RecordTick(2)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			joined := strings.Join(names, ",")
			So(joined, ShouldContainSubstring, "parkprice_engine_ticks_total")
			So(joined, ShouldContainSubstring, "parkprice_engine_tick_duration_milliseconds")
		})

		Convey("Then recording is safe from many goroutines", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					RecordPriceUpdates(1)
					RecordReadingRejected("stale_reading")
				}()
			}
			wg.Wait()
			So(true, ShouldBeTrue)
		})
	})
}
