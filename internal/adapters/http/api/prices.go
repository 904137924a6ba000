package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/parkprice/internal/domain/types"
	"github.com/okian/parkprice/internal/engine"
)

// PricesHandler serves the latest prices and per-lot history.
type PricesHandler struct {
	deps     PricesDependencies
	maxLimit int
}

// NewPricesHandler creates a new prices handler.
func NewPricesHandler(deps PricesDependencies, maxLimit int) *PricesHandler {
	if maxLimit <= 0 {
		maxLimit = defaultMaxHistoryLimit
	}
	return &PricesHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetPrices handles GET /prices requests.
func (h *PricesHandler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Lots(r.Context()))
}

// HandleGetPrice handles GET /prices/{lot_id} requests.
func (h *PricesHandler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_price"
	lotID := r.PathValue("lot_id")
	u, err := h.deps.Lot(r.Context(), lotID)
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleGetHistory handles GET /prices/{lot_id}/history?limit=N requests.
// Without a limit the most recent max-limit entries are returned.
func (h *PricesHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	lotID := r.PathValue("lot_id")

	limit := h.maxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	entries, err := h.deps.History(r.Context(), lotID, limit)
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	resp := types.HistoryResponse{LotID: lotID, Entries: make([]types.HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, types.HistoryEntry{
			Timestamp:        e.Timestamp,
			TickID:           e.TickID,
			LinearPrice:      e.Prices.Linear,
			DemandPrice:      e.Prices.Demand,
			CompetitivePrice: e.Prices.Competitive,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeLookupError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, engine.ErrNotFound) || errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}
