package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/parkprice/internal/adapters/mq/queue"
	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/types"
	"github.com/okian/parkprice/internal/engine"
	"github.com/okian/parkprice/pkg/metrics"
)

// ReadingsHandler handles batch ingestion.
type ReadingsHandler struct {
	deps         ReadingsDependencies
	maxBatchSize int
}

// NewReadingsHandler creates a new readings handler.
func NewReadingsHandler(deps ReadingsDependencies, maxBatchSize int) *ReadingsHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}
	return &ReadingsHandler{deps: deps, maxBatchSize: maxBatchSize}
}

// HandlePostReadings handles POST /readings requests.
//
// Readings that fail stateless validation are reported back and never
// queued; the rest are queued as one batch. Staleness is only known once
// the batch is ticked.
func (h *ReadingsHandler) HandlePostReadings(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_readings"

	var req types.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	switch {
	case len(req.Readings) == 0:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, engine.ErrEmptyBatch))
		return
	case len(req.Readings) > h.maxBatchSize:
		writeError(w, http.StatusBadRequest, "batch_too_large", WrapKind(op, ErrBadRequest,
			fmt.Errorf("%d readings exceeds %d: %w", len(req.Readings), h.maxBatchSize, engine.ErrBatchTooLarge)))
		return
	}

	batch := model.Batch{ID: req.BatchID, Readings: make([]model.LotReading, 0, len(req.Readings))}
	var rejected []types.Rejection
	for i, rr := range req.Readings {
		reading, err := ToReading(rr)
		if err != nil {
			metrics.RecordReadingRejected(reason(err))
			rejected = append(rejected, rejection(i, rr, err))
			continue
		}
		batch.Readings = append(batch.Readings, reading)
	}

	if len(batch.Readings) == 0 {
		writeJSON(w, http.StatusBadRequest, types.BatchResponse{Status: types.StatusRejected, BatchID: req.BatchID, Rejected: rejected})
		return
	}

	status, err := h.submit(r.Context(), &batch)
	switch {
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case status == types.StatusDuplicate:
		writeJSON(w, http.StatusOK, types.BatchResponse{Status: types.StatusDuplicate, BatchID: batch.ID})
		return
	}
	writeJSON(w, http.StatusAccepted, types.BatchResponse{
		Status:   types.StatusAccepted,
		BatchID:  batch.ID,
		Accepted: len(batch.Readings),
		Rejected: rejected,
	})
}

// submit dedupes and enqueues b, assigning an id when the client sent none.
func (h *ReadingsHandler) submit(ctx context.Context, b *model.Batch) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	} else if h.deps.SeenAndRecord(ctx, b.ID) {
		metrics.RecordBatchDuplicate()
		return types.StatusDuplicate, nil
	}
	if err := h.deps.Enqueue(ctx, *b); err != nil {
		// Allow the client to retry the same id.
		h.deps.Unrecord(ctx, b.ID)
		return "", fmt.Errorf("enqueue batch %q: %w", b.ID, err)
	}
	return types.StatusAccepted, nil
}

// ToReading converts a posted reading. Absent keys are reported as missing
// fields; nothing is defaulted.
func ToReading(rr types.ReadingRequest) (model.LotReading, error) {
	lotID := ""
	if rr.LotID != nil {
		lotID = *rr.LotID
	}
	missing := func(field string) error {
		return &engine.ReadingError{LotID: lotID, Field: field, Err: engine.ErrMissingField}
	}
	switch {
	case rr.LotID == nil:
		return model.LotReading{}, missing("lot_id")
	case rr.Timestamp == nil:
		return model.LotReading{}, missing("timestamp")
	case rr.Occupancy == nil:
		return model.LotReading{}, missing("occupancy")
	case rr.Capacity == nil:
		return model.LotReading{}, missing("capacity")
	case rr.QueueLength == nil:
		return model.LotReading{}, missing("queue_length")
	case rr.TrafficLevel == nil:
		return model.LotReading{}, missing("traffic_level")
	case rr.VehicleType == nil:
		return model.LotReading{}, missing("vehicle_type")
	case rr.IsSpecialDay == nil:
		return model.LotReading{}, missing("is_special_day")
	case rr.Latitude == nil:
		return model.LotReading{}, missing("latitude")
	case rr.Longitude == nil:
		return model.LotReading{}, missing("longitude")
	}

	ts, err := time.Parse(time.RFC3339Nano, *rr.Timestamp)
	if err != nil {
		return model.LotReading{}, &engine.ReadingError{LotID: lotID, Field: "timestamp", Err: fmt.Errorf("%w: %w", ErrInvalidField, err)}
	}

	reading := model.LotReading{
		LotID:        lotID,
		Timestamp:    ts,
		Occupancy:    *rr.Occupancy,
		Capacity:     *rr.Capacity,
		QueueLength:  *rr.QueueLength,
		TrafficLevel: model.TrafficLevel(*rr.TrafficLevel),
		VehicleType:  model.VehicleType(*rr.VehicleType),
		IsSpecialDay: *rr.IsSpecialDay,
		Latitude:     *rr.Latitude,
		Longitude:    *rr.Longitude,
	}
	if err := engine.ValidateReading(reading); err != nil {
		return model.LotReading{}, err
	}
	return reading, nil
}

func reason(err error) string {
	if errors.Is(err, ErrInvalidField) {
		return "invalid_field"
	}
	return engine.Reason(err)
}

func rejection(i int, rr types.ReadingRequest, err error) types.Rejection {
	rj := types.Rejection{Index: i, Reason: reason(err), Message: err.Error()}
	if rr.LotID != nil {
		rj.LotID = *rr.LotID
	}
	var re *engine.ReadingError
	if errors.As(err, &re) {
		rj.Field = re.Field
	}
	return rj
}
