// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/parkprice/internal/domain/dedupe"
	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/types"
	"github.com/okian/parkprice/internal/engine"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ReadingsDependencies
	PricesDependencies
}

// ReadingsDependencies is what POST /readings needs.
type ReadingsDependencies interface {
	dedupe.Deduper

	// Enqueue queues a batch for the next tick. It fails on backpressure.
	Enqueue(ctx context.Context, b model.Batch) error
}

// PricesDependencies is what the price read routes need.
type PricesDependencies interface {
	Lots(ctx context.Context) []model.PriceUpdate
	Lot(ctx context.Context, lotID string) (model.PriceUpdate, error)
	History(ctx context.Context, lotID string, limit int) ([]engine.HistoryEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	readingsHandler *ReadingsHandler
	pricesHandler   *PricesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		readingsHandler: NewReadingsHandler(deps, o.maxBatchSize),
		pricesHandler:   NewPricesHandler(deps, o.maxHistoryLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /readings", MetricsMiddleware(s.readingsHandler.HandlePostReadings, "readings"))
	mux.HandleFunc("GET /prices", MetricsMiddleware(s.pricesHandler.HandleGetPrices, "prices"))
	mux.HandleFunc("GET /prices/{lot_id}", MetricsMiddleware(s.pricesHandler.HandleGetPrice, "price"))
	mux.HandleFunc("GET /prices/{lot_id}/history", MetricsMiddleware(s.pricesHandler.HandleGetHistory, "history"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}
