// Package types contains the JSON shapes shared by the HTTP API and its
// clients.
package types

import "time"

// ReadingRequest is one reading as posted to /readings. Every field is a
// pointer so an absent key can be told apart from a zero value.
type ReadingRequest struct {
	LotID        *string  `json:"lot_id"`
	Timestamp    *string  `json:"timestamp"`
	Occupancy    *int     `json:"occupancy"`
	Capacity     *int     `json:"capacity"`
	QueueLength  *int     `json:"queue_length"`
	TrafficLevel *string  `json:"traffic_level"`
	VehicleType  *string  `json:"vehicle_type"`
	IsSpecialDay *bool    `json:"is_special_day"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// BatchRequest is the body of POST /readings.
type BatchRequest struct {
	BatchID  string           `json:"batch_id,omitempty"`
	Readings []ReadingRequest `json:"readings"`
}

// Rejection reports why one posted reading was not queued.
type Rejection struct {
	Index   int    `json:"index"`
	LotID   string `json:"lot_id,omitempty"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// BatchResponse acknowledges POST /readings.
type BatchResponse struct {
	Status   string      `json:"status"`
	BatchID  string      `json:"batch_id,omitempty"`
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// Batch statuses.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
	StatusRejected  = "rejected"
)

// HistoryEntry is one committed price set of a lot.
type HistoryEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	TickID           string    `json:"tick_id"`
	LinearPrice      float64   `json:"linear_price"`
	DemandPrice      float64   `json:"demand_price"`
	CompetitivePrice float64   `json:"competitive_price"`
}

// HistoryResponse is the body of GET /prices/{lot_id}/history.
type HistoryResponse struct {
	LotID   string         `json:"lot_id"`
	Entries []HistoryEntry `json:"entries"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
