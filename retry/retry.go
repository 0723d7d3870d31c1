package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	DefaultMaxRetries = 2
	DefaultBaseWait   = 100 * time.Millisecond
	DefaultMaxWait    = 2 * time.Second
)

type options struct {
	maxRetries int
	baseWait   time.Duration
	maxWait    time.Duration
	jitter     bool
	onRetry    func(attempt int, err error)
}

// Option configures Do.
type Option func(*options)

// WithMaxRetries sets how many times a recoverable failure is retried. Zero
// means the function runs exactly once.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxRetries = n
	}
}

// WithBaseWait sets the delay before the first retry. Each later retry
// doubles it, capped by WithMaxWait.
func WithBaseWait(d time.Duration) Option {
	return func(o *options) { o.baseWait = d }
}

// WithMaxWait caps the delay between attempts.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) { o.maxWait = d }
}

// WithJitter randomizes each delay to between half and all of its value.
func WithJitter(enabled bool) Option {
	return func(o *options) { o.jitter = enabled }
}

// WithOnRetry registers a hook invoked before each retry.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Do runs fn until it succeeds, returns an error that is not recoverable, the
// retry budget is spent, or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	o := options{
		maxRetries: DefaultMaxRetries,
		baseWait:   DefaultBaseWait,
		maxWait:    DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= o.maxRetries || !IsRecoverable(err) {
			return err
		}
		if o.onRetry != nil {
			o.onRetry(attempt+1, err)
		}
		timer := time.NewTimer(o.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (o *options) delay(attempt int) time.Duration {
	if o.baseWait <= 0 {
		return 0
	}
	d := o.baseWait << attempt
	if d <= 0 || (o.maxWait > 0 && d > o.maxWait) {
		d = o.maxWait
	}
	if o.jitter && d > 1 {
		half := d / 2
		d = half + rand.N(half)
	}
	return d
}
