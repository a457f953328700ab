package store

import "time"

// Option configures Store behavior.
type Option func(*StoreOptions)

// StoreOptions carries optional configuration for Store.
type StoreOptions struct {
	Now   func() time.Time
	NewID func() string
}

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(opts *StoreOptions) {
		opts.Now = now
	}
}

// WithIDGenerator overrides how primary keys are generated for new rows.
func WithIDGenerator(gen func() string) Option {
	return func(opts *StoreOptions) {
		opts.NewID = gen
	}
}
