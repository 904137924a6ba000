package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/parkprice/internal/adapters/http/api"
	app "github.com/okian/parkprice/internal/app"
	"github.com/okian/parkprice/internal/config"
	"github.com/okian/parkprice/pkg/logger"
	"github.com/okian/parkprice/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			// Test with environment variables
			_ = os.Setenv("PARKPRICE_ADDR", ":8080")
			_ = os.Setenv("PARKPRICE_QUEUE_SIZE", "1000")
			_ = os.Setenv("PARKPRICE_PARALLELISM", "4")
			defer func() {
				_ = os.Unsetenv("PARKPRICE_ADDR")
				_ = os.Unsetenv("PARKPRICE_QUEUE_SIZE")
				_ = os.Unsetenv("PARKPRICE_PARALLELISM")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.Parallelism, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				cfg := config.New()
				cfg.QueueSize = 2000
				cfg.DedupeSize = 1000
				svc := app.New(app.WithConfig(cfg))
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, svc)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsReporting(t *testing.T) {
	convey.Convey("Given the metrics reporters", t, func() {
		convey.Convey("When the reporting loop's context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then the loop returns", func() {
				done := make(chan struct{})
				go func() {
					reportMetrics(ctx, app.New())
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					convey.So("reportMetrics did not return", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("Then single updates work on started and unstarted services", func() {
			convey.So(recordRuntimeMetrics, convey.ShouldNotPanic)
			convey.So(func() { recordServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given an address on a free port", t, func() {
		_ = os.Setenv("PARKPRICE_ADDR", "127.0.0.1:0")
		defer func() { _ = os.Unsetenv("PARKPRICE_ADDR") }()

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("PARKPRICE_NORMALIZER", "zscore")
			defer func() { _ = os.Unsetenv("PARKPRICE_NORMALIZER") }()

			convey.Convey("Then run fails before serving", func() {
				err := run(context.Background())
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When testing full application setup", func() {
			// Set up test environment
			_ = os.Setenv("PARKPRICE_ADDR", ":8080")
			_ = os.Setenv("PARKPRICE_QUEUE_SIZE", "1000")
			_ = os.Setenv("PARKPRICE_GEO_INDEX", "linear")
			defer func() {
				_ = os.Unsetenv("PARKPRICE_ADDR")
				_ = os.Unsetenv("PARKPRICE_QUEUE_SIZE")
				_ = os.Unsetenv("PARKPRICE_GEO_INDEX")
			}()

			convey.Convey("Then all components should work together", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				// Load configuration
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)

				convey.So(cfg.GeoIndex, convey.ShouldEqual, config.GeoIndexLinear)

				svc := app.New(app.WithConfig(cfg))
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)

				// Create HTTP server
				server := api.NewServer(svc, svc, api.WithMaxBatchSize(cfg.MaxBatchSize))
				convey.So(server, convey.ShouldNotBeNil)

				// Create HTTP mux
				mux := http.NewServeMux()
				convey.So(mux, convey.ShouldNotBeNil)

				// Register routes
				server.Register(ctx, mux)
				convey.So(svc.GetStats()["started"], convey.ShouldBeTrue)

				// Stop service
				svc.Stop()
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			// Set invalid configuration
			_ = os.Setenv("PARKPRICE_GEO_INDEX", "rtree")
			defer func() { _ = os.Unsetenv("PARKPRICE_GEO_INDEX") }()

			convey.Convey("Then configuration loading should fail", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing service creation with invalid options", func() {
			convey.Convey("Then service should handle invalid options gracefully", func() {
				// Test with extreme values
				cfg := config.New()
				cfg.QueueSize = 0
				svc := app.New(app.WithConfig(cfg))
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.Start(context.Background()), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service and its mux", t, func() {
		cfg := config.New()
		cfg.GeoIndex = config.GeoIndexLinear
		cfg.MaxHistoryLimit = 5
		svc := app.New(app.WithConfig(cfg))
		ctx := context.Background()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, cfg, svc)

		serve := func(method, target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
			return w
		}

		convey.Convey("Then the OpenAPI document is served", func() {
			w := serve("GET", "/openapi.yaml")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/readings")
		})

		convey.Convey("Then the price routes are wired", func() {
			convey.So(serve("GET", "/prices").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/prices/unknown").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then a stopped service answers unavailable", func() {
			svc.Stop()
			body := `{"readings":[{"lot_id":"a","timestamp":"2024-03-01T08:00:00Z","occupancy":1,"capacity":10,` +
				`"queue_length":0,"traffic_level":"low","vehicle_type":"car","is_special_day":false,"latitude":1,"longitude":1}]}`
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("POST", "/readings", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"code":"unavailable"`)
		})

		convey.Convey("Then the configured history cap applies", func() {
			w := serve("GET", "/prices/unknown/history?limit=6")
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "limit_exceeded")
		})
	})
}

func TestMainApplicationResourceCleanup(t *testing.T) {
	convey.Convey("Given main application resource cleanup", t, func() {
		convey.Convey("When testing service creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then service should be created successfully", func() {
				// Test that service can be created without starting
				convey.So(svc, convey.ShouldNotBeNil)

				// Test that we can get stats without starting
				stats := svc.GetStats()
				convey.So(stats, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing multiple service creation cycles", func() {
			convey.Convey("Then multiple services should be created successfully", func() {
				for i := 0; i < 3; i++ {
					svc := app.New()
					convey.So(svc, convey.ShouldNotBeNil)

					// Test that we can get stats
					stats := svc.GetStats()
					convey.So(stats, convey.ShouldNotBeNil)
				}
			})
		})
	})
}
