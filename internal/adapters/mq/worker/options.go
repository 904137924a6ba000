package worker

import (
	"github.com/okian/parkprice/internal/engine"
	"github.com/okian/parkprice/pkg/logger"
)

// Option applies a configuration option to the TickRunner.
type Option func(*TickRunner)

// WithName sets the runner name for identification and logging.
func WithName(name string) Option {
	return func(w *TickRunner) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(logger logger.Logger) Option {
	return func(w *TickRunner) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithResultHook registers fn to be called after every successful tick.
// fn runs on the runner goroutine and must return quickly.
func WithResultHook(fn func(engine.TickResult)) Option {
	return func(w *TickRunner) {
		w.onResult = fn
	}
}
