package engine

import (
	"github.com/okian/parkprice/internal/domain/geo"
	"github.com/okian/parkprice/internal/domain/normalize"
	"github.com/okian/parkprice/internal/domain/pricing"
	"github.com/okian/parkprice/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParams sets the pricing parameters.
func WithParams(p pricing.Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithIndex sets the neighbor index.
func WithIndex(idx geo.Index) Option {
	return func(e *Engine) {
		if idx != nil {
			e.index = idx
		}
	}
}

// WithNormalizer sets the feature normalizer.
func WithNormalizer(n normalize.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithPublisher sets where emitted updates are published.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithParallelism bounds the goroutines used per tick phase.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithMaxBatchSize caps the readings accepted in one tick.
func WithMaxBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBatchSize = n
		}
	}
}

// WithHistoryLimit keeps at most n history entries per lot; 0 keeps all.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.historyLimit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
