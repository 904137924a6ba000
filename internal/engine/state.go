package engine

import (
	"time"

	"github.com/okian/parkprice/internal/domain/model"
)

// HistoryEntry is one committed price set of a lot.
type HistoryEntry struct {
	Timestamp time.Time
	TickID    string
	Prices    model.PriceSet
}

// LotState is the engine-owned record of a lot. Values handed out by the
// engine are copies; mutating them has no effect on the engine.
type LotState struct {
	LotID    string
	Reading  model.LotReading
	Features model.Features
	Prices   model.PriceSet
	// Located is false when the last reading carried invalid coordinates.
	Located bool
	History []HistoryEntry
}

// Latest returns the lot's most recent emitted update.
func (s *LotState) Latest() model.PriceUpdate {
	return model.NewPriceUpdate(s.LotID, s.Reading.Timestamp, s.Prices)
}

func (s *LotState) clone() LotState {
	c := *s
	c.History = append([]HistoryEntry(nil), s.History...)
	return c
}

func (s *LotState) appendHistory(entry HistoryEntry, limit int) {
	s.History = append(s.History, entry)
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}
