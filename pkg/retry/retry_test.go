package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/memerr"
)

func TestExecute_NoPolicySingleAttempt(t *testing.T) {
	var calls atomic.Int32

	err := Execute(context.Background(), nil, func(context.Context) error {
		calls.Add(1)

		return &memerr.ServerError{Status: 503}
	})

	assert.Equal(t, memerr.KindServer, memerr.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_RetriesThenSucceeds(t *testing.T) {
	var stamps []time.Time

	policy := &Policy{Attempts: 2, Delay: 100 * time.Millisecond}

	err := Execute(context.Background(), policy, func(context.Context) error {
		stamps = append(stamps, time.Now())
		if len(stamps) == 1 {
			return &memerr.NetworkError{Cause: errors.New("reset by peer")}
		}

		return nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 2, len(stamps))
	assert.True(t, stamps[1].Sub(stamps[0]) >= 100*time.Millisecond)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32

	policy := &Policy{Attempts: 3, Delay: 5 * time.Millisecond}

	err := Execute(context.Background(), policy, func(context.Context) error {
		calls.Add(1)

		return &memerr.ServerError{Status: 500}
	})

	var serr *memerr.ServerError
	assert.True(t, errors.As(err, &serr))
	assert.Equal(t, 500, serr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecute_DoesNotRetryValidation(t *testing.T) {
	var calls atomic.Int32

	policy := &Policy{Attempts: 10, Delay: time.Millisecond}

	err := Execute(context.Background(), policy, func(context.Context) error {
		calls.Add(1)

		return &memerr.ValidationError{Message: "Unauthorized", Status: 401}
	})

	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_UnclassifiedErrorIsNetwork(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	err := Execute(context.Background(), nil, func(context.Context) error { return cause })

	assert.Equal(t, memerr.KindNetwork, memerr.KindOf(err))
	assert.True(t, errors.Is(err, cause))
}

func TestExecute_CancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32

	policy := &Policy{Attempts: 5, Delay: time.Hour}

	done := make(chan error, 1)

	go func() {
		done <- Execute(ctx, policy, func(context.Context) error {
			calls.Add(1)

			return &memerr.RateLimitedError{}
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, memerr.KindNetwork, memerr.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not stop after cancellation")
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_OnRetryHook(t *testing.T) {
	var attempts []int

	policy := &Policy{Attempts: 3}

	_ = Execute(context.Background(), policy, func(context.Context) error {
		return &memerr.ServerError{Status: 502}
	}, WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}))

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ReturnsValue(t *testing.T) {
	v, err := Do(context.Background(), &Policy{Attempts: 1}, func(context.Context) (string, error) {
		return "ok", nil
	})

	assert.Nil(t, err)
	assert.Equal(t, "ok", v)
}

func TestPolicy_Validate(t *testing.T) {
	_, err := NewPolicy(0, time.Second)
	assert.True(t, errors.Is(err, sentinel.ErrInvalidRetryPolicy))

	_, err = NewPolicy(2, -time.Second)
	assert.True(t, errors.Is(err, sentinel.ErrInvalidRetryPolicy))

	p, err := NewPolicy(2, 0)
	assert.Nil(t, err)
	assert.Equal(t, 2, p.MaxAttempts())

	var nilPolicy *Policy
	assert.Equal(t, 1, nilPolicy.MaxAttempts())
}
