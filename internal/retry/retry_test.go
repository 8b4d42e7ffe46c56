package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devctx/asyncrawler/internal/ferrors"
)

func TestDoSucceedsAfterTransientRetries(t *testing.T) {
	mock := clock.NewMock()
	var retries []int
	strategy := New(map[ferrors.Kind]Policy{
		ferrors.KindTransient: {MaxRetries: 3, BackoffFactor: 2.0},
	}, func(err *ferrors.FetchError, attempt int, kind ferrors.Kind, delay time.Duration, url string) {
		retries = append(retries, attempt)
	}, mock)

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- strategy.Do(context.Background(), "http://x/ok", func() error {
			attempts++
			if attempts < 3 {
				return ferrors.Transient("unavailable", 503, nil)
			}
			return nil
		})
	}()

	// advance the mock clock past each backoff sleep
	for i := 0; i < 2; i++ {
		advanceUntilWaiters(mock, 1)
	}

	require.NoError(t, <-done)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoPropagatesUnregisteredKindImmediately(t *testing.T) {
	strategy := New(map[ferrors.Kind]Policy{
		ferrors.KindTransient: {MaxRetries: 3, BackoffFactor: 2.0},
	}, nil, clock.NewMock())

	calls := 0
	err := strategy.Do(context.Background(), "http://x", func() error {
		calls++
		return ferrors.Permanent("not found", 404, nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsBudgetAndPropagates(t *testing.T) {
	mock := clock.NewMock()
	strategy := New(map[ferrors.Kind]Policy{
		ferrors.KindNetwork: {MaxRetries: 1, BackoffFactor: 1.0},
	}, nil, mock)

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- strategy.Do(context.Background(), "http://x", func() error {
			calls++
			return ferrors.Network("dial failed", errors.New("dial tcp"))
		})
	}()

	advanceUntilWaiters(mock, 1)

	err := <-done
	require.Error(t, err)
	assert.Equal(t, 2, calls) // initial attempt + 1 retry
}

func TestDoTracksBudgetsPerKindIndependently(t *testing.T) {
	mock := clock.NewMock()
	strategy := New(map[ferrors.Kind]Policy{
		ferrors.KindTransient: {MaxRetries: 1, BackoffFactor: 1.0},
		ferrors.KindNetwork:   {MaxRetries: 1, BackoffFactor: 1.0},
	}, nil, mock)

	seq := []error{
		ferrors.Transient("t", 503, nil),
		ferrors.Network("n", nil),
		nil,
	}
	idx := 0
	done := make(chan error, 1)
	go func() {
		done <- strategy.Do(context.Background(), "http://x", func() error {
			e := seq[idx]
			idx++
			return e
		})
	}()

	advanceUntilWaiters(mock, 2)

	require.NoError(t, <-done)
	assert.Equal(t, 3, idx)
}

// advanceUntilWaiters resolves n consecutive backoff sleeps: for each one it
// gives the retrying goroutine a moment to reach its clock.After call, then
// fires every pending timer so the sleep resolves instantly instead of
// waiting on a real clock.
func advanceUntilWaiters(mock *clock.Mock, n int) {
	for i := 0; i < n; i++ {
		time.Sleep(5 * time.Millisecond)
		mock.Add(time.Hour)
	}
}
