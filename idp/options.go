package idp

import (
	"log/slog"
	"time"
)

type options struct {
	log *slog.Logger
	now func() time.Time
}

func newOptions(opts []Option) *options {
	o := &options{log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the services in this package.
type Option func(*options)

// WithLogger sets the logger for provider call diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides the time source used to compute token expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
