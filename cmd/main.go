// Command parkprice serves streaming parking-lot prices over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/parkprice/internal/adapters/http/api"
	"github.com/okian/parkprice/internal/adapters/http/swagger"
	app "github.com/okian/parkprice/internal/app"
	"github.com/okian/parkprice/internal/config"
	"github.com/okian/parkprice/pkg/logger"
	"github.com/okian/parkprice/pkg/metrics"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	// metricsInterval paces the runtime and service gauges.
	metricsInterval = 5 * time.Second
	nsPerMs         = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("parkprice: init logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		logger.Get().Error(context.Background(), "parkprice exited", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then drains HTTP and the tick queue.
func run(ctx context.Context) error {
	log := logger.Named("main")

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "unknown log_level, using info", logger.String("log_level", cfg.LogLevel))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(app.WithConfig(cfg), app.WithLogger(logger.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	// Stop after the HTTP server so in-flight POSTs still reach the queue.
	defer svc.Stop()

	go reportMetrics(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", logger.String("addr", cfg.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// newMux registers the OpenAPI document and the pricing API routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxBatchSize(cfg.MaxBatchSize),
		api.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
	).Register(ctx, mux)
	return mux
}

// reportMetrics refreshes the runtime and service gauges until ctx is done.
func reportMetrics(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recordRuntimeMetrics()
			recordServiceMetrics(svc)
		}
	}
}

func recordRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nsPerMs)
	}
}

// recordServiceMetrics publishes the queue depth and lot count. GetStats
// refreshes the same gauges; reading them back keeps them current between
// /stats requests.
func recordServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if n, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(n)
	}
	if n, ok := stats["lots"].(int); ok {
		metrics.UpdateLotsTracked(n)
	}
}
