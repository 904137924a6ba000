// Package engine runs the streaming price computation. Each tick ingests a
// batch of readings, prices every touched lot from its own features, and
// only then applies the neighbor-competitive nudge against a frozen snapshot
// of all demand prices, so results never depend on lot iteration order.
package engine

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/okian/parkprice/internal/domain/geo"
	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/normalize"
	"github.com/okian/parkprice/internal/domain/pricing"
	"github.com/okian/parkprice/pkg/logger"
)

const (
	defaultMaxBatchSize = 10_000
	defaultHistoryLimit = 1_000
)

// Publisher receives every emitted update. Implementations must not block.
type Publisher interface {
	Publish(u model.PriceUpdate)
}

// Engine exclusively owns all LotState. Ticks are serialized; reads may run
// concurrently with each other but not with a tick's commit.
type Engine struct {
	mu   sync.RWMutex
	lots map[string]*LotState

	params       pricing.Params
	index        geo.Index
	normalizer   normalize.Normalizer
	publisher    Publisher
	parallelism  int
	maxBatchSize int
	historyLimit int

	logger logger.Logger
}

// New constructs an Engine. It fails when the pricing params are invalid.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		lots:         make(map[string]*LotState),
		params:       pricing.DefaultParams(),
		index:        geo.NewLinearIndex(),
		normalizer:   normalize.NewRunningMinMax(),
		parallelism:  runtime.NumCPU(),
		maxBatchSize: defaultMaxBatchSize,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	if err := e.params.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return e, nil
}

// Params returns the pricing parameters in use.
func (e *Engine) Params() pricing.Params {
	return e.params
}

// Lot returns a copy of the lot's state.
func (e *Engine) Lot(lotID string) (LotState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.lots[lotID]
	if !ok {
		return LotState{}, false
	}
	return s.clone(), true
}

// Lots returns the last emitted update of every lot, sorted by lot id.
func (e *Engine) Lots() []model.PriceUpdate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.PriceUpdate, 0, len(e.lots))
	for _, s := range e.lots {
		out = append(out, s.Latest())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LotID < out[j].LotID })
	return out
}

// History returns up to limit of the lot's most recent history entries in
// chronological order. A non-positive limit returns all of them.
func (e *Engine) History(lotID string, limit int) ([]HistoryEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("history %q: %w", lotID, ErrNotFound)
	}
	h := s.History
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return append([]HistoryEntry(nil), h...), nil
}

// Len returns the number of lots with committed state.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.lots)
}
