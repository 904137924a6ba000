package api

const (
	defaultMaxBatchSize    = 10_000
	defaultMaxHistoryLimit = 500
)

type options struct {
	maxBatchSize    int
	maxHistoryLimit int
}

func defaultOptions() options {
	return options{maxBatchSize: defaultMaxBatchSize, maxHistoryLimit: defaultMaxHistoryLimit}
}

// Option configures the Server.
type Option func(*options)

// WithMaxBatchSize caps the readings accepted in one POST.
func WithMaxBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBatchSize = n
		}
	}
}

// WithMaxHistoryLimit caps the history limit query parameter.
func WithMaxHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHistoryLimit = n
		}
	}
}
