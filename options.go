package triplebuffer

import (
	"log/slog"
)

// Option configures an Index or Buffer during creation.
//
// Example:
//
//	b := triplebuffer.New(newFrame,
//	    triplebuffer.WithPolicy(triplebuffer.Exclusive),
//	    triplebuffer.WithStats(),
//	)
type Option func(*options)

type options struct {
	policy Policy
	stats  bool
	logger *slog.Logger
}

func defaultOptions() options {
	return options{
		policy: LockFree,
		stats:  false,
		logger: nil, // falls back to Logger() at the time of logging
	}
}

// WithPolicy selects the concurrency policy. The default is LockFree.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithStats enables the counters returned by Stats.
func WithStats() Option {
	return func(o *options) {
		o.stats = true
	}
}

// WithLogger sets a logger for this instance instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
