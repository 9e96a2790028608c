// Package retry runs a logical operation in a bounded, fixed-delay retry loop.
// Operations return classified errors (see pkg/memerr); only retry-eligible kinds
// are re-attempted. The wait between attempts is a real timer that observes the
// caller's context, so a cancelled caller never leaves an attempt scheduled.
package retry

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/memerr"
)

// Policy bounds the retry loop. Attempts counts the first try, so Attempts=3 allows two retries.
type Policy struct {
	Attempts int           `json:"attempts" yaml:"attempts"`
	Delay    time.Duration `json:"delay"    yaml:"-"`
}

// NewPolicy returns a validated policy.
func NewPolicy(attempts int, delay time.Duration) (*Policy, error) {
	p := &Policy{Attempts: attempts, Delay: delay}

	err := p.Validate()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks Attempts >= 1 and Delay >= 0.
func (p *Policy) Validate() error {
	if p == nil {
		return nil
	}

	if p.Attempts < 1 {
		return ewrap.Wrapf(sentinel.ErrInvalidRetryPolicy, "attempts must be >= 1, got %d", p.Attempts)
	}

	if p.Delay < 0 {
		return ewrap.Wrapf(sentinel.ErrInvalidRetryPolicy, "delay must be >= 0, got %s", p.Delay)
	}

	return nil
}

// MaxAttempts returns the attempt budget; a nil policy allows exactly one attempt.
func (p *Policy) MaxAttempts() int {
	if p == nil || p.Attempts < 1 {
		return 1
	}

	return p.Attempts
}

func (p *Policy) delay() time.Duration {
	if p == nil || p.Delay < 0 {
		return 0
	}

	return p.Delay
}

// Hook observes a failed attempt that is about to be retried.
type Hook func(attempt int, err error, wait time.Duration)

// Option configures a single Execute/Do call.
type Option func(*settings)

type settings struct {
	onRetry Hook
}

// WithOnRetry registers a hook invoked before each wait.
func WithOnRetry(h Hook) Option {
	return func(s *settings) { s.onRetry = h }
}

// Execute runs op under policy and returns nil or the last classified error.
func Execute(ctx context.Context, policy *Policy, op func(ctx context.Context) error, opts ...Option) error {
	_, err := Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)

	return err
}

// Do runs op under policy and returns its result or the last classified error.
// Errors that are not part of the memerr taxonomy are reported as network errors.
func Do[T any](ctx context.Context, policy *Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var (
		zero T
		cfg  settings
	)

	for _, opt := range opts {
		opt(&cfg)
	}

	maxAttempts := policy.MaxAttempts()
	wait := policy.delay()

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return zero, &memerr.NetworkError{Cause: ctx.Err()}
		}

		res, err := op(ctx)
		if err == nil {
			return res, nil
		}

		err = classified(err)

		if attempt >= maxAttempts || !memerr.IsRetryEligible(err) {
			return zero, err
		}

		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err, wait)
		}

		if werr := sleep(ctx, wait); werr != nil {
			return zero, &memerr.NetworkError{Cause: werr}
		}
	}
}

func classified(err error) error {
	if memerr.KindOf(err) != memerr.KindUnknown {
		return err
	}

	return &memerr.NetworkError{Cause: err}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
